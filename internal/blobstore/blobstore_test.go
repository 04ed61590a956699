package blobstore

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corewell/noderepo/internal/itemstate"
)

func testPropID() itemstate.PropertyId {
	return itemstate.PropertyId{
		Parent: itemstate.NewNodeId(),
		Name:   itemstate.Name{URI: "http://example.org", Local: "data"},
	}
}

func TestInMemoryRoundTrip(t *testing.T) {
	s := NewInMemory()
	id, err := s.CreateID(testPropID(), 0)
	require.NoError(t, err)

	payload := []byte("hello blob store")
	require.NoError(t, s.Put(id, bytes.NewReader(payload), int64(len(payload))))

	r, err := s.Get(id)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	require.NoError(t, s.Remove(id))
	_, err = s.Get(id)
	require.Error(t, err)
}

func TestCompressingRoundTrip(t *testing.T) {
	underlying := NewInMemory()
	c := NewCompressing(underlying)

	propID := testPropID()
	id, err := c.CreateID(propID, 1)
	require.NoError(t, err)

	payload := []byte(strings.Repeat("repeatable payload bytes ", 200))
	require.NoError(t, c.Put(id, bytes.NewReader(payload), int64(len(payload))))

	// The underlying store holds compressed bytes, smaller than the
	// original for this highly repetitive payload.
	raw, err := underlying.Get(id)
	require.NoError(t, err)
	rawBytes, err := io.ReadAll(raw)
	require.NoError(t, err)
	require.Less(t, len(rawBytes), len(payload))

	r, err := c.Get(id)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	require.NoError(t, c.Remove(id))
	_, err = underlying.Get(id)
	require.Error(t, err)
}

func TestCompressingCreateIDDelegates(t *testing.T) {
	underlying := NewInMemory()
	c := NewCompressing(underlying)

	id1, err := c.CreateID(testPropID(), 0)
	require.NoError(t, err)
	id2, err := c.CreateID(testPropID(), 0)
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)
}
