package bundle

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/corewell/noderepo/internal/itemstate"
	"github.com/corewell/noderepo/internal/names"
	"github.com/corewell/noderepo/internal/rerr"
	"github.com/corewell/noderepo/internal/rlog"
	"github.com/corewell/noderepo/internal/varint"
	"go.uber.org/zap"
)

// countingWriter counts bytes written through it, the way the teacher
// tracks file position via its Allocator rather than trusting a caller
// to recompute a size field.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}

// Writer serializes a single NodeBundle to a byte stream. A Writer is
// single-threaded, bound to one stream, and holds no state beyond its
// per-encode namespace intern table (spec.md §5).
type Writer struct {
	cw      *countingWriter
	bw      *bufio.Writer
	binding *Binding
	intern  *internTable
}

// NewWriter creates a Writer that encodes bundles onto w using the
// given Binding for BINARY value placement.
func NewWriter(w io.Writer, binding *Binding) *Writer {
	cw := &countingWriter{w: w}
	return &Writer{
		cw:      cw,
		bw:      bufio.NewWriter(cw),
		binding: binding,
		intern:  newInternTable(),
	}
}

// Write encodes bundle onto the underlying stream. id is the NodeId
// owning this bundle — needed only to mint BlobStore ids for BINARY
// properties, it is not part of the wire format (spec.md §3: a
// NodeBundle carries no id of its own). On return, bundle.Size is
// stamped with the number of bytes written (spec.md §3 invariant: the
// size field is always recomputed, never trusted).
func (w *Writer) Write(id itemstate.NodeId, b *NodeBundle) error {
	metricsStart := w.binding.Metrics.Start()
	defer w.binding.Metrics.ObserveCodec("encode", metricsStart)

	w.intern = newInternTable()
	start := w.cw.n

	if err := w.bw.WriteByte(FormatVersion); err != nil {
		return rerr.Wrap("write format version", err)
	}
	if err := w.writeName(b.PrimaryType); err != nil {
		return rerr.Wrap("write primary type", err)
	}
	if err := w.writeNodeIDPtr(b.ParentID); err != nil {
		return rerr.Wrap("write parent id", err)
	}

	for _, mixin := range b.Mixins {
		if err := w.writeName(mixin); err != nil {
			return rerr.Wrap("write mixin", err)
		}
	}
	if err := w.writeName(itemstate.NilName); err != nil {
		return rerr.Wrap("write mixin terminator", err)
	}

	for i := range b.Properties {
		ps := &b.Properties[i]
		if isSyntheticProperty(ps.ID.Name) {
			continue
		}
		if err := w.writeName(ps.ID.Name); err != nil {
			return rerr.Wrap("write property name", err)
		}
		if err := w.writePropertyState(id, ps); err != nil {
			return rerr.Wrap("write property state", err)
		}
	}
	if err := w.writeName(itemstate.NilName); err != nil {
		return rerr.Wrap("write property terminator", err)
	}

	if err := w.writeBool(b.Referenceable); err != nil {
		return rerr.Wrap("write referenceable", err)
	}

	for _, ce := range b.ChildEntries {
		cid := ce.ID
		if err := w.writeNodeIDPtr(&cid); err != nil {
			return rerr.Wrap("write child id", err)
		}
		if err := w.writeName(ce.Name); err != nil {
			return rerr.Wrap("write child name", err)
		}
	}
	if err := w.writeNodeIDPtr(nil); err != nil {
		return rerr.Wrap("write child terminator", err)
	}

	if err := varint.Write(w.bw, b.ModCount); err != nil {
		return rerr.Wrap("write mod count", err)
	}

	for _, sid := range b.SharedSet {
		s := sid
		if err := w.writeNodeIDPtr(&s); err != nil {
			return rerr.Wrap("write shared set entry", err)
		}
	}
	if err := w.writeNodeIDPtr(nil); err != nil {
		return rerr.Wrap("write shared set terminator", err)
	}

	if err := w.bw.Flush(); err != nil {
		return rerr.Wrap("flush bundle", err)
	}

	b.Size = w.cw.n - start
	return nil
}

// isSyntheticProperty reports whether name is one of the properties
// folded into dedicated bundle fields (primaryType, mixinTypes, uuid)
// and therefore never written as a property entry (spec.md §4.3
// step 5).
func isSyntheticProperty(name itemstate.Name) bool {
	switch name.Local {
	case "primaryType", "mixinTypes", "uuid":
		return name.URI == "http://www.jcp.org/jcr/1.0"
	}
	return false
}

func (w *Writer) writeBool(v bool) error {
	var b byte
	if v {
		b = 1
	}
	return w.bw.WriteByte(b)
}

// writeNodeIDPtr writes the presence byte then, if present, the two
// 64-bit halves (spec.md §4.3 step 3, and the terminator convention
// for child/shared-set lists).
func (w *Writer) writeNodeIDPtr(id *itemstate.NodeId) error {
	if id == nil {
		return w.writeBool(false)
	}
	if err := w.writeBool(true); err != nil {
		return err
	}
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], id.MSB)
	binary.BigEndian.PutUint64(buf[8:16], id.LSB)
	_, err := w.bw.Write(buf[:])
	return err
}

// writeName encodes a Name per spec.md §4.3: a single byte 0xxxxxxx
// for a well-known BundleNames index, or 1NNN LLLL followed by an
// interned/inline namespace URI and the local name bytes.
func (w *Writer) writeName(name itemstate.Name) error {
	if idx := names.NameToIndex(name); idx >= 0 {
		return w.bw.WriteByte(byte(idx))
	}

	localBytes := []byte(name.Local)
	localLen := len(localBytes)
	llll := localLen - 1
	if llll > 15 {
		llll = 15
	}

	slot, isNew := w.intern.assign(name.URI)
	header := byte(0x80) | byte(slot<<4) | byte(llll)
	if err := w.bw.WriteByte(header); err != nil {
		return err
	}
	if isNew {
		if err := varint.WriteString(w.bw, name.URI); err != nil {
			return err
		}
	}

	if llll < 15 {
		_, err := w.bw.Write(localBytes)
		return err
	}
	return varint.WriteBytes(w.bw, localBytes, 16)
}

// writePropertyState writes the property entry header and values
// (spec.md §4.3 "Property entry header").
func (w *Writer) writePropertyState(nodeID itemstate.NodeId, ps *itemstate.PropertyState) error {
	t := ps.Type
	if !ps.MultiValued {
		header := byte(t) & 0x0F
		if err := w.bw.WriteByte(header); err != nil {
			return err
		}
		if len(ps.Values) != 1 {
			return &rerr.CorruptBundle{Reason: "single-valued property must carry exactly one value"}
		}
		return w.writeValue(nodeID, ps.ID.Name, 0, t, &ps.Values[0])
	}

	n := len(ps.Values)
	l := n + 1
	if l < 15 {
		header := (byte(l) << 4) | (byte(t) & 0x0F)
		if err := w.bw.WriteByte(header); err != nil {
			return err
		}
	} else {
		header := byte(0xF0) | (byte(t) & 0x0F)
		if err := w.bw.WriteByte(header); err != nil {
			return err
		}
		if err := varint.Write(w.bw, uint32(l-15)); err != nil {
			return err
		}
	}
	if err := varint.Write(w.bw, ps.ModCount); err != nil {
		return err
	}
	for i := range ps.Values {
		if err := w.writeValue(nodeID, ps.ID.Name, i, t, &ps.Values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeValue(nodeID itemstate.NodeId, name itemstate.Name, index int, t itemstate.PropertyType, v *itemstate.Value) error {
	switch t {
	case itemstate.TypeLong:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(v.Long))
		_, err := w.bw.Write(buf[:])
		return err

	case itemstate.TypeDouble:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(v.Double))
		_, err := w.bw.Write(buf[:])
		return err

	case itemstate.TypeBoolean:
		return w.writeBool(v.Bool)

	case itemstate.TypeDecimal:
		if err := w.writeBool(v.DecimalPresent); err != nil {
			return err
		}
		if !v.DecimalPresent {
			return nil
		}
		return varint.WriteString(w.bw, v.Decimal)

	case itemstate.TypeName:
		return w.writeName(v.Name)

	case itemstate.TypeReference, itemstate.TypeWeakReference:
		return w.writeNodeIDPtr(&v.Node)

	case itemstate.TypePath, itemstate.TypeString, itemstate.TypeDate, itemstate.TypeURI:
		return varint.WriteString(w.bw, v.String)

	case itemstate.TypeBinary:
		propID := itemstate.PropertyId{Parent: nodeID, Name: name}
		return w.writeBinary(propID, index, v)

	default:
		return &rerr.CorruptBundle{Reason: "unknown property type on write"}
	}
}

func (w *Writer) writeInt32(n int32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(n))
	_, err := w.bw.Write(buf[:])
	return err
}

// writeBinary implements the binary placement policy of spec.md §4.3.
func (w *Writer) writeBinary(propID itemstate.PropertyId, index int, v *itemstate.Value) error {
	length := int64(len(v.Small))
	if v.BlobID != "" {
		// A blob id already exists: the value lives in the blob
		// store regardless of its recorded length.
		return w.writeBlobReference(propID, index, v)
	}

	ds := w.binding.DataStore
	if ds != nil && length < int64(ds.MinRecordLength())-1 {
		return w.writeSmallBinary(v.Small)
	}
	if ds != nil {
		return w.writeToDataStore(propID, index, v)
	}
	if length < 0 {
		// Unreachable while Value models binaries as an in-memory
		// []byte (len is never negative); kept for the unknown-length
		// stream case spec.md §4.3 step 3 describes, should Value ever
		// gain a streaming source.
		rlog.Warn("negative binary length recovered as empty value",
			zap.String("property", propID.String()))
		v.Small = []byte{}
		return w.writeSmallBinary(v.Small)
	}
	if length > int64(w.binding.BlobMinSize) {
		return w.writeBlobReference(propID, index, v)
	}
	return w.writeSmallBinary(v.Small)
}

func (w *Writer) writeSmallBinary(data []byte) error {
	if err := w.writeInt32(int32(len(data))); err != nil {
		return rerr.Wrap("IoError: small binary write", err)
	}
	if _, err := w.bw.Write(data); err != nil {
		// The error is surfaced and fails the whole Write; the value is
		// left as it was.
		return rerr.Wrap("IoError: small binary write", err)
	}
	return nil
}

func (w *Writer) writeToDataStore(propID itemstate.PropertyId, index int, v *itemstate.Value) error {
	if err := w.writeInt32(int32(BinaryInDataStore)); err != nil {
		return err
	}
	id, err := w.binding.DataStore.Put(propID, index, bytesReader(v.Small), int64(len(v.Small)))
	if err != nil {
		return &rerr.BlobIoError{Context: "data store put", Cause: err}
	}
	v.BlobID = id
	v.InDataStore = true
	return varint.WriteString(w.bw, id)
}

func (w *Writer) writeBlobReference(propID itemstate.PropertyId, index int, v *itemstate.Value) error {
	if err := w.writeInt32(int32(BinaryInBlobStore)); err != nil {
		return err
	}
	if v.BlobID == "" {
		id, err := w.binding.Blobs.CreateID(propID, index)
		if err != nil {
			return &rerr.BlobIoError{Context: "blob store create id", Cause: err}
		}
		if err := w.binding.Blobs.Put(id, bytesReader(v.Small), int64(len(v.Small))); err != nil {
			_ = w.binding.Blobs.Remove(id) // best-effort cleanup of the failed upload
			return &rerr.BlobIoError{Context: "blob store put", Cause: err}
		}
		v.BlobID = id
	}
	return varint.WriteString(w.bw, v.BlobID)
}

func bytesReader(b []byte) io.Reader {
	return &simpleByteReader{data: b}
}

// simpleByteReader avoids pulling in bytes.Reader's Seek/ReadAt
// surface for a write-only streaming need.
type simpleByteReader struct {
	data []byte
	pos  int
}

func (r *simpleByteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
