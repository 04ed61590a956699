// Package testutil provides hand-rolled fakes for the codec's and
// hierarchy manager's external collaborators, mirroring the teacher's
// internal/testing.mock_reader.go (a small, deterministic fake rather
// than a generated mock).
package testutil

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/corewell/noderepo/internal/itemstate"
)

// FakeBlobStore is an in-memory BlobStore for tests.
type FakeBlobStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	seq     int
	PutErr  error // if set, Put fails with this error (once)
	failPut bool
}

// NewFakeBlobStore creates an empty FakeBlobStore.
func NewFakeBlobStore() *FakeBlobStore {
	return &FakeBlobStore{blobs: make(map[string][]byte)}
}

func (s *FakeBlobStore) CreateID(propertyID itemstate.PropertyId, valueIndex int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return fmt.Sprintf("blob-%s-%d-%d", propertyID.Name.Local, valueIndex, s.seq), nil
}

func (s *FakeBlobStore) Put(id string, r io.Reader, length int64) error {
	if s.PutErr != nil {
		err := s.PutErr
		s.PutErr = nil
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[id] = data
	return nil
}

func (s *FakeBlobStore) Get(id string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[id]
	if !ok {
		return nil, fmt.Errorf("no such blob: %s", id)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *FakeBlobStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, id)
	return nil
}

// Contains reports whether a blob with the given id has been stored.
func (s *FakeBlobStore) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[id]
	return ok
}

// FakeDataStore is an in-memory DataStore for tests.
type FakeDataStore struct {
	mu        sync.Mutex
	records   map[string][]byte
	seq       int
	minRecord int
}

// NewFakeDataStore creates a FakeDataStore with the given
// MinRecordLength threshold.
func NewFakeDataStore(minRecordLength int) *FakeDataStore {
	return &FakeDataStore{records: make(map[string][]byte), minRecord: minRecordLength}
}

func (s *FakeDataStore) MinRecordLength() int {
	return s.minRecord
}

func (s *FakeDataStore) Put(propertyID itemstate.PropertyId, valueIndex int, r io.Reader, length int64) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := fmt.Sprintf("ds-%d", s.seq)
	s.records[id] = data
	return id, nil
}
