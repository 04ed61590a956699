package bundle

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/corewell/noderepo/internal/itemstate"
	"github.com/corewell/noderepo/internal/names"
	"github.com/corewell/noderepo/internal/rerr"
	"github.com/corewell/noderepo/internal/varint"
)

// countingReader counts bytes consumed, so a decoded bundle can stamp
// its own Size the same way the writer does (spec.md §3 invariant).
type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

// Reader decodes a single NodeBundle from a byte stream. Symmetric
// with Writer: single-threaded, bound to one stream, one namespace
// intern table per decode.
type Reader struct {
	cr      *countingReader
	br      *bufio.Reader
	binding *Binding
	intern  *internTable
}

// NewReader creates a Reader against r. On read, binding supplies only
// the metrics Recorder: BINARY placement is taken from the wire markers,
// and neither the BlobStore nor the DataStore is dereferenced during
// decode (only the stored id is recorded).
func NewReader(r io.Reader, binding *Binding) *Reader {
	cr := &countingReader{r: r}
	return &Reader{
		cr:      cr,
		br:      bufio.NewReader(cr),
		binding: binding,
		intern:  newInternTable(),
	}
}

// Read decodes one NodeBundle owned by id. The owning NodeId is not
// part of the wire format (spec.md §3), but is needed to reconstruct
// each PropertyState's PropertyId (parent, name) the way Write needs
// it to mint BlobStore ids.
func (r *Reader) Read(id itemstate.NodeId) (*NodeBundle, error) {
	metricsStart := r.binding.Metrics.Start()
	defer r.binding.Metrics.ObserveCodec("decode", metricsStart)

	r.intern = newInternTable()
	start := r.cr.n

	version, err := r.br.ReadByte()
	if err != nil {
		return nil, rerr.Wrap("read format version", err)
	}

	var b *NodeBundle
	switch version {
	case 1:
		b, err = r.readV1(id)
	default:
		return nil, &rerr.CorruptBundle{Reason: "unsupported bundle version", Offset: int64(start)}
	}
	if err != nil {
		return nil, err
	}

	b.Size = r.cr.n - start
	return b, nil
}

func (r *Reader) readV1(id itemstate.NodeId) (*NodeBundle, error) {
	b := &NodeBundle{}

	primaryType, err := r.readName()
	if err != nil {
		return nil, rerr.Wrap("read primary type", err)
	}
	b.PrimaryType = primaryType

	parentID, err := r.readNodeIDPtr()
	if err != nil {
		return nil, rerr.Wrap("read parent id", err)
	}
	b.ParentID = parentID

	for {
		name, err := r.readName()
		if err != nil {
			return nil, rerr.Wrap("read mixin", err)
		}
		if name.IsNil() {
			break
		}
		b.Mixins = append(b.Mixins, name)
	}

	for {
		name, err := r.readName()
		if err != nil {
			return nil, rerr.Wrap("read property name", err)
		}
		if name.IsNil() {
			break
		}
		ps, err := r.readPropertyState(id, name)
		if err != nil {
			return nil, rerr.Wrap("read property state", err)
		}
		b.Properties = append(b.Properties, *ps)
	}

	referenceable, err := r.readBool()
	if err != nil {
		return nil, rerr.Wrap("read referenceable", err)
	}
	b.Referenceable = referenceable

	for {
		cid, err := r.readNodeIDPtr()
		if err != nil {
			return nil, rerr.Wrap("read child id", err)
		}
		if cid == nil {
			break
		}
		name, err := r.readName()
		if err != nil {
			return nil, rerr.Wrap("read child name", err)
		}
		b.ChildEntries = append(b.ChildEntries, itemstate.ChildEntry{Name: name, ID: *cid})
	}

	modCount, err := varint.Read(r.br)
	if err != nil {
		return nil, rerr.Wrap("read mod count", err)
	}
	b.ModCount = modCount

	for {
		sid, err := r.readNodeIDPtr()
		if err != nil {
			return nil, rerr.Wrap("read shared set entry", err)
		}
		if sid == nil {
			break
		}
		b.SharedSet = append(b.SharedSet, *sid)
	}

	return b, nil
}

func (r *Reader) readBool() (bool, error) {
	b, err := r.br.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (r *Reader) readNodeIDPtr() (*itemstate.NodeId, error) {
	present, err := r.readBool()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	var buf [16]byte
	if _, err := io.ReadFull(r.br, buf[:]); err != nil {
		return nil, err
	}
	return &itemstate.NodeId{
		MSB: binary.BigEndian.Uint64(buf[0:8]),
		LSB: binary.BigEndian.Uint64(buf[8:16]),
	}, nil
}

// readName inverts Writer.writeName.
func (r *Reader) readName() (itemstate.Name, error) {
	header, err := r.br.ReadByte()
	if err != nil {
		return itemstate.Name{}, err
	}

	if header&0x80 == 0 {
		idx := int(header)
		if idx == names.NullIndex {
			return itemstate.NilName, nil
		}
		name, ok := names.IndexToName(idx)
		if !ok {
			return itemstate.Name{}, &rerr.CorruptBundle{Reason: "unknown well-known name index"}
		}
		return name, nil
	}

	slot := int((header >> 4) & 0x7)
	llll := int(header & 0x0F)

	uri, ok := r.intern.resolve(slot)
	if !ok {
		uri, err = varint.ReadString(r.br)
		if err != nil {
			return itemstate.Name{}, err
		}
		r.intern.populate(slot, uri)
	}

	var local []byte
	if llll < 15 {
		local = make([]byte, llll+1)
		if _, err := io.ReadFull(r.br, local); err != nil {
			return itemstate.Name{}, err
		}
	} else {
		local, err = varint.ReadBytes(r.br, 16)
		if err != nil {
			return itemstate.Name{}, err
		}
	}

	return itemstate.Name{URI: uri, Local: string(local)}, nil
}

func (r *Reader) readPropertyState(nodeID itemstate.NodeId, name itemstate.Name) (*itemstate.PropertyState, error) {
	header, err := r.br.ReadByte()
	if err != nil {
		return nil, err
	}
	t := itemstate.PropertyType(header & 0x0F)
	if !t.Valid() {
		return nil, &rerr.CorruptBundle{Reason: "unknown property type"}
	}
	m := int((header >> 4) & 0x0F)

	ps := &itemstate.PropertyState{ID: itemstate.PropertyId{Parent: nodeID, Name: name}, Type: t}

	if m == 0 {
		ps.MultiValued = false
		v, err := r.readValue(name, 0, t)
		if err != nil {
			return nil, err
		}
		ps.Values = []itemstate.Value{*v}
		return ps, nil
	}

	ps.MultiValued = true
	l := m
	if m == 0xF {
		extra, err := varint.Read(r.br)
		if err != nil {
			return nil, err
		}
		l = int(extra) + 15
	}
	n := l - 1

	modCount, err := varint.Read(r.br)
	if err != nil {
		return nil, err
	}
	ps.ModCount = modCount

	ps.Values = make([]itemstate.Value, n)
	for i := 0; i < n; i++ {
		v, err := r.readValue(name, i, t)
		if err != nil {
			return nil, err
		}
		ps.Values[i] = *v
	}
	return ps, nil
}

func (r *Reader) readValue(name itemstate.Name, index int, t itemstate.PropertyType) (*itemstate.Value, error) {
	switch t {
	case itemstate.TypeLong:
		var buf [8]byte
		if _, err := io.ReadFull(r.br, buf[:]); err != nil {
			return nil, err
		}
		return &itemstate.Value{Long: int64(binary.BigEndian.Uint64(buf[:]))}, nil

	case itemstate.TypeDouble:
		var buf [8]byte
		if _, err := io.ReadFull(r.br, buf[:]); err != nil {
			return nil, err
		}
		return &itemstate.Value{Double: math.Float64frombits(binary.BigEndian.Uint64(buf[:]))}, nil

	case itemstate.TypeBoolean:
		b, err := r.readBool()
		if err != nil {
			return nil, err
		}
		return &itemstate.Value{Bool: b}, nil

	case itemstate.TypeDecimal:
		present, err := r.readBool()
		if err != nil {
			return nil, err
		}
		if !present {
			return &itemstate.Value{}, nil
		}
		s, err := varint.ReadString(r.br)
		if err != nil {
			return nil, err
		}
		return &itemstate.Value{Decimal: s, DecimalPresent: true}, nil

	case itemstate.TypeName:
		n, err := r.readName()
		if err != nil {
			return nil, err
		}
		return &itemstate.Value{Name: n}, nil

	case itemstate.TypeReference, itemstate.TypeWeakReference:
		id, err := r.readNodeIDPtr()
		if err != nil {
			return nil, err
		}
		if id == nil {
			return &itemstate.Value{}, nil
		}
		return &itemstate.Value{Node: *id}, nil

	case itemstate.TypePath, itemstate.TypeString, itemstate.TypeDate, itemstate.TypeURI:
		s, err := varint.ReadString(r.br)
		if err != nil {
			return nil, err
		}
		return &itemstate.Value{String: s}, nil

	case itemstate.TypeBinary:
		return r.readBinary()

	default:
		return nil, &rerr.CorruptBundle{Reason: "unknown property type on read"}
	}
}

func (r *Reader) readInt32() (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r.br, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

// readBinary inverts Writer.writeBinary's placement policy: it reads
// the 4-byte length/sentinel, then either the inline bytes or a
// varint-length-prefixed store id.
func (r *Reader) readBinary() (*itemstate.Value, error) {
	raw, err := r.readInt32()
	if err != nil {
		return nil, err
	}
	marker := uint32(raw)

	switch marker {
	case BinaryInDataStore:
		id, err := varint.ReadString(r.br)
		if err != nil {
			return nil, err
		}
		return &itemstate.Value{BlobID: id, InDataStore: true}, nil

	case BinaryInBlobStore:
		id, err := varint.ReadString(r.br)
		if err != nil {
			return nil, err
		}
		return &itemstate.Value{BlobID: id}, nil

	default:
		if raw < 0 {
			return nil, &rerr.CorruptBundle{Reason: "negative inline binary length"}
		}
		buf := make([]byte, raw)
		if _, err := io.ReadFull(r.br, buf); err != nil {
			return nil, err
		}
		return &itemstate.Value{Small: buf}, nil
	}
}
