// Package store provides a reference ItemStateManager and BlobStore,
// backed by an embedded bbolt database. It is not part of the core's
// public contract (spec.md §6 specifies only the collaborator
// interfaces) but exists so the bundle codec and hierarchy manager can
// be exercised end-to-end against real persistence in tests and via
// cmd/noderepo-inspect, the same way the teacher ships a real
// FileWriter/os.File pair rather than testing the HDF5 format purely
// against mocks.
//
// Grounded on the teacher's internal/writer.FileWriter: an
// allocator/address-keyed region of a single file becomes here a
// keyed bbolt bucket, and WriteAt/ReadAt/Flush/Close become
// Put/Get/Close against a bucket transaction.
package store

import (
	"bytes"
	"encoding/binary"
	"io"
	"strconv"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/corewell/noderepo/internal/bundle"
	"github.com/corewell/noderepo/internal/itemstate"
	"github.com/corewell/noderepo/internal/rerr"
	"github.com/corewell/noderepo/internal/rlog"

	"go.uber.org/zap"
)

var (
	nodesBucket = []byte("nodes")
	blobsBucket = []byte("blobs")
)

// Store is a bbolt-backed ItemStateManager + BlobStore pair. NodeState
// instances are cached in memory once hydrated, so the single listener
// slot a hierarchy manager subscribes (spec.md §4.5) survives across
// repeated lookups of the same id; mutations applied to a live
// NodeState are not automatically written back (write-back belongs to
// a session layer, out of this core's scope per spec.md §1).
type Store struct {
	db      *bbolt.DB
	binding *bundle.Binding

	mu        sync.Mutex
	cache     map[itemstate.NodeId]*itemstate.NodeState
	refsIndex map[itemstate.NodeId][]itemstate.PropertyId
	blobSeq   int
}

// Option configures a Store.
type Option func(*Store)

// WithBindingOptions applies bundle.BindingOptions (e.g.
// bundle.WithBlobMinSize, bundle.WithMetrics) to the Store's Binding.
func WithBindingOptions(opts ...bundle.BindingOption) Option {
	return func(s *Store) {
		for _, opt := range opts {
			opt(s.binding)
		}
	}
}

// Open opens (creating if absent) a bbolt database at path as a Store.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, rerr.Wrap("open store", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(nodesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(blobsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, rerr.Wrap("initialize buckets", err)
	}

	s := &Store{
		db:        db,
		cache:     make(map[itemstate.NodeId]*itemstate.NodeState),
		refsIndex: make(map[itemstate.NodeId][]itemstate.PropertyId),
	}
	s.binding = bundle.NewBinding(s)
	for _, opt := range opts {
		opt(s)
	}

	if err := s.rebuildReferenceIndex(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Binding returns the Binding Writer/Reader callers should use to
// encode/decode bundles against this Store's BlobStore.
func (s *Store) Binding() *bundle.Binding {
	return s.binding
}

func nodeKey(id itemstate.NodeId) []byte {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], id.MSB)
	binary.BigEndian.PutUint64(buf[8:16], id.LSB)
	return buf[:]
}

// CreateNode encodes b and persists it under id, then hydrates and
// caches the resulting NodeState, returning it.
func (s *Store) CreateNode(id itemstate.NodeId, b *bundle.NodeBundle) (*itemstate.NodeState, error) {
	var buf bytes.Buffer
	w := bundle.NewWriter(&buf, s.binding)
	if err := w.Write(id, b); err != nil {
		return nil, rerr.Wrap("encode bundle", err)
	}

	key := nodeKey(id)
	data := buf.Bytes()
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(nodesBucket).Put(key, data)
	})
	if err != nil {
		return nil, rerr.Wrap("persist bundle", err)
	}

	state := stateFromBundle(id, b)
	s.mu.Lock()
	s.cache[id] = state
	s.indexReferencesLocked(id, b)
	s.mu.Unlock()

	rlog.L().Debug("node created", zap.Stringer("id", id), zap.Int("size", b.Size))
	return state, nil
}

// LoadBundle decodes and returns the persisted NodeBundle for id,
// bypassing the NodeState cache. Used by cmd/noderepo-inspect to
// print a node's full decoded contents.
func (s *Store) LoadBundle(id itemstate.NodeId) (*bundle.NodeBundle, error) {
	key := nodeKey(id)
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(nodesBucket).Get(key)
		if v == nil {
			return &rerr.NoSuchItemState{ID: id.String()}
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		if rerr.IsNoSuchItemState(err) {
			return nil, err
		}
		return nil, rerr.Wrap("load bundle", err)
	}

	r := bundle.NewReader(bytes.NewReader(data), s.binding)
	b, err := r.Read(id)
	if err != nil {
		return nil, rerr.Wrap("decode bundle", err)
	}
	return b, nil
}

// NodeState implements hierarchy.ItemStateManager, hydrating and
// caching from the persisted bundle on first access.
func (s *Store) NodeState(id itemstate.NodeId) (*itemstate.NodeState, error) {
	s.mu.Lock()
	if st, ok := s.cache[id]; ok {
		s.mu.Unlock()
		return st, nil
	}
	s.mu.Unlock()

	b, err := s.LoadBundle(id)
	if err != nil {
		return nil, err
	}
	state := stateFromBundle(id, b)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.cache[id]; ok {
		return existing, nil
	}
	s.cache[id] = state
	s.indexReferencesLocked(id, b)
	return state, nil
}

// HasNodeState implements hierarchy.ItemStateManager.
func (s *Store) HasNodeState(id itemstate.NodeId) bool {
	s.mu.Lock()
	if _, ok := s.cache[id]; ok {
		s.mu.Unlock()
		return true
	}
	s.mu.Unlock()

	var found bool
	s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(nodesBucket).Get(nodeKey(id)) != nil
		return nil
	})
	return found
}

// GetNodeReferences implements hierarchy.ItemStateManager, answered
// from an in-memory reverse index over REFERENCE/WEAKREFERENCE
// properties, rebuilt at Open and maintained by CreateNode.
func (s *Store) GetNodeReferences(id itemstate.NodeId) ([]itemstate.PropertyId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := s.refsIndex[id]
	out := make([]itemstate.PropertyId, len(refs))
	copy(out, refs)
	return out, nil
}

// HasNodeReferences implements hierarchy.ItemStateManager.
func (s *Store) HasNodeReferences(id itemstate.NodeId) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.refsIndex[id]) > 0
}

func (s *Store) indexReferencesLocked(_ itemstate.NodeId, b *bundle.NodeBundle) {
	for i := range b.Properties {
		ps := &b.Properties[i]
		if ps.Type != itemstate.TypeReference && ps.Type != itemstate.TypeWeakReference {
			continue
		}
		for _, v := range ps.Values {
			s.refsIndex[v.Node] = append(s.refsIndex[v.Node], ps.ID)
		}
	}
}

func (s *Store) rebuildReferenceIndex() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(nodesBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			id := itemstate.NodeId{
				MSB: binary.BigEndian.Uint64(k[0:8]),
				LSB: binary.BigEndian.Uint64(k[8:16]),
			}
			r := bundle.NewReader(bytes.NewReader(v), s.binding)
			b, err := r.Read(id)
			if err != nil {
				rlog.L().Warn("skipping unreadable bundle during reference reindex",
					zap.Stringer("id", id), zap.Error(err))
				continue
			}
			s.indexReferencesLocked(id, b)
		}
		return nil
	})
}

func stateFromBundle(id itemstate.NodeId, b *bundle.NodeBundle) *itemstate.NodeState {
	names := make([]itemstate.Name, len(b.Properties))
	for i, ps := range b.Properties {
		names[i] = ps.ID.Name
	}
	return itemstate.Hydrate(id, b.PrimaryType, b.ParentID, b.Mixins, b.ChildEntries, names, b.SharedSet, itemstate.StatusExisting)
}

// CreateID implements bundle.BlobStore, minting a sequential id scoped
// to the owning property.
func (s *Store) CreateID(propertyID itemstate.PropertyId, valueIndex int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobSeq++
	return propertyID.String() + "#" + strconv.Itoa(valueIndex) + "-" + strconv.Itoa(s.blobSeq), nil
}

// Put implements bundle.BlobStore, persisting the stream into the
// blobs bucket.
func (s *Store) Put(id string, r io.Reader, length int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return rerr.Wrap("read blob", err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(blobsBucket).Put([]byte(id), data)
	})
	if err != nil {
		return rerr.Wrap("persist blob", err)
	}
	return nil
}

// Get implements bundle.BlobStore.
func (s *Store) Get(id string) (io.ReadCloser, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(blobsBucket).Get([]byte(id))
		if v == nil {
			return &rerr.NoSuchItemState{ID: id}
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		if rerr.IsNoSuchItemState(err) {
			return nil, err
		}
		return nil, rerr.Wrap("read blob", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Remove implements bundle.BlobStore.
func (s *Store) Remove(id string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(blobsBucket).Delete([]byte(id))
	})
	if err != nil {
		return rerr.Wrap("remove blob", err)
	}
	return nil
}
