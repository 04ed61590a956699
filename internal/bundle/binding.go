package bundle

import (
	"io"

	"github.com/corewell/noderepo/internal/itemstate"
	"github.com/corewell/noderepo/internal/metrics"
)

// BlobStore is the external large-binary storage collaborator
// consumed by the codec (spec.md §6). Implementations are expected to
// be thread-safe: createId/put/get may be invoked concurrently from
// different bundles (spec.md §5).
type BlobStore interface {
	CreateID(propertyID itemstate.PropertyId, valueIndex int) (string, error)
	Put(id string, r io.Reader, length int64) error
	Get(id string) (io.ReadCloser, error)
	Remove(id string) error
}

// ResourceBlobStore is an optional BlobStore capability for zero-copy
// retrieval (spec.md §6).
type ResourceBlobStore interface {
	BlobStore
	GetResource(id string) (io.ReaderAt, error)
}

// DataStore is the optional external data store consulted ahead of
// BlobStore for very small or very large binaries (spec.md §4.3,
// binary placement policy steps 1–2).
type DataStore interface {
	// MinRecordLength sets the inline threshold: a binary value shorter
	// than MinRecordLength()-1 bytes is written inline rather than
	// persisted to the data store.
	MinRecordLength() int
	Put(propertyID itemstate.PropertyId, valueIndex int, r io.Reader, length int64) (id string, err error)
}

// Binding bundles the collaborators and policy thresholds a Writer or
// Reader needs: a BlobStore, a minimum-blob-size threshold governing
// the blob-vs-inline decision, and an optional external DataStore
// (spec.md §4.3).
type Binding struct {
	Blobs       BlobStore
	BlobMinSize int
	DataStore   DataStore // nil if not configured.
	Metrics     *metrics.Recorder // nil disables codec duration observation.
}

// BindingOption configures a Binding, the same functional-options
// shape the teacher uses for rebalancing.DetectorOption.
type BindingOption func(*Binding)

// WithDataStore attaches an optional external DataStore.
func WithDataStore(ds DataStore) BindingOption {
	return func(b *Binding) {
		b.DataStore = ds
	}
}

// WithBlobMinSize overrides the default blob-vs-inline threshold.
func WithBlobMinSize(n int) BindingOption {
	return func(b *Binding) {
		if n > 0 {
			b.BlobMinSize = n
		}
	}
}

// WithMetrics attaches a Recorder to observe codec encode/decode
// duration. Omitting this option leaves observation disabled.
func WithMetrics(rec *metrics.Recorder) BindingOption {
	return func(b *Binding) {
		b.Metrics = rec
	}
}

// defaultBlobMinSize is the default threshold (bytes) above which a
// BINARY value is offloaded to the BlobStore rather than inlined.
const defaultBlobMinSize = 4096

// NewBinding constructs a Binding against the given BlobStore.
func NewBinding(blobs BlobStore, opts ...BindingOption) *Binding {
	b := &Binding{
		Blobs:       blobs,
		BlobMinSize: defaultBlobMinSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}
