// Package blobstore provides BlobStore implementations for the bundle
// codec's large-binary placement tier (spec.md §4.3 step 4, §6):
// a compressing decorator over another BlobStore, grounded on the
// teacher's internal/writer filter decorators (Fletcher32Filter,
// GzipFilter, ...: an Apply/Remove pair wrapping raw bytes), and an
// in-memory store for standalone use outside of internal/store.
package blobstore

import (
	"bytes"
	"io"
	"strconv"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/corewell/noderepo/internal/itemstate"
	"github.com/corewell/noderepo/internal/rerr"
)

// Compressing wraps another BlobStore (its Underlying field), zstd-
// compressing values on Put and transparently decompressing on Get.
// CreateID and Remove pass through unchanged, the same way the
// teacher's filter pipeline decorates only the byte payload and
// leaves addressing to its caller.
type Compressing struct {
	Underlying CreatePutGetRemover
	level      zstd.EncoderLevel
}

// CreatePutGetRemover is the subset of bundle.BlobStore this package
// depends on, named locally to avoid an import of internal/bundle
// (which itself would create a cycle: bundle is the consumer of this
// package's types).
type CreatePutGetRemover interface {
	CreateID(propertyID itemstate.PropertyId, valueIndex int) (string, error)
	Put(id string, r io.Reader, length int64) error
	Get(id string) (io.ReadCloser, error)
	Remove(id string) error
}

// CompressingOption configures a Compressing store.
type CompressingOption func(*Compressing)

// WithLevel overrides the default zstd encoder level.
func WithLevel(level zstd.EncoderLevel) CompressingOption {
	return func(c *Compressing) {
		c.level = level
	}
}

// NewCompressing wraps underlying with zstd compression.
func NewCompressing(underlying CreatePutGetRemover, opts ...CompressingOption) *Compressing {
	c := &Compressing{Underlying: underlying, level: zstd.SpeedDefault}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateID delegates to the underlying store.
func (c *Compressing) CreateID(propertyID itemstate.PropertyId, valueIndex int) (string, error) {
	return c.Underlying.CreateID(propertyID, valueIndex)
}

// Put compresses the stream and delegates to the underlying store's
// Put with the compressed length.
func (c *Compressing) Put(id string, r io.Reader, length int64) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return rerr.Wrap("read blob for compression", err)
	}

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(c.level))
	if err != nil {
		return rerr.Wrap("create zstd encoder", err)
	}
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		return rerr.Wrap("compress blob", err)
	}
	if err := enc.Close(); err != nil {
		return rerr.Wrap("flush zstd encoder", err)
	}

	if err := c.Underlying.Put(id, bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		return err
	}
	return nil
}

// Get decompresses the stream returned by the underlying store.
func (c *Compressing) Get(id string) (io.ReadCloser, error) {
	r, err := c.Underlying.Get(id)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, rerr.Wrap("read compressed blob", err)
	}

	dec, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, rerr.Wrap("create zstd decoder", err)
	}
	raw, err := io.ReadAll(dec)
	dec.Close()
	if err != nil {
		return nil, rerr.Wrap("decompress blob", err)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

// Remove delegates to the underlying store.
func (c *Compressing) Remove(id string) error {
	return c.Underlying.Remove(id)
}

// InMemory is a standalone in-memory BlobStore, the uncompressed
// counterpart to Compressing used directly (without internal/store)
// wherever a BlobStore collaborator is needed but durability is not.
type InMemory struct {
	mu    sync.Mutex
	blobs map[string][]byte
	seq   int
}

// NewInMemory creates an empty InMemory store.
func NewInMemory() *InMemory {
	return &InMemory{blobs: make(map[string][]byte)}
}

// CreateID mints a deterministic, collision-free id from the owning
// property and a monotonic sequence number.
func (s *InMemory) CreateID(propertyID itemstate.PropertyId, valueIndex int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return propertyID.String() + "#" + strconv.Itoa(valueIndex) + "-" + strconv.Itoa(s.seq), nil
}

func (s *InMemory) Put(id string, r io.Reader, length int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return rerr.Wrap("read blob", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[id] = data
	return nil
}

func (s *InMemory) Get(id string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[id]
	if !ok {
		return nil, &rerr.NoSuchItemState{ID: id}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *InMemory) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, id)
	return nil
}
