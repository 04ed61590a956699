package store

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corewell/noderepo/internal/bundle"
	"github.com/corewell/noderepo/internal/itemstate"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateNodeAndNodeState(t *testing.T) {
	s := openTestStore(t)

	rootID := itemstate.NewNodeId()
	b := &bundle.NodeBundle{
		PrimaryType: itemstate.Name{URI: "http://www.jcp.org/jcr/nt/1.0", Local: "unstructured"},
	}
	state, err := s.CreateNode(rootID, b)
	require.NoError(t, err)
	require.Equal(t, rootID, state.ID)

	// Same instance on a second lookup, so a subscribed listener
	// survives repeated resolution.
	again, err := s.NodeState(rootID)
	require.NoError(t, err)
	require.Same(t, state, again)

	require.True(t, s.HasNodeState(rootID))
	require.False(t, s.HasNodeState(itemstate.NewNodeId()))
}

func TestNodeStateUnknownID(t *testing.T) {
	s := openTestStore(t)
	_, err := s.NodeState(itemstate.NewNodeId())
	require.Error(t, err)
}

func TestLoadBundleRoundTrip(t *testing.T) {
	s := openTestStore(t)

	id := itemstate.NewNodeId()
	childID := itemstate.NewNodeId()
	name := itemstate.Name{URI: "", Local: "foo"}
	b := &bundle.NodeBundle{
		PrimaryType:   itemstate.Name{URI: "http://www.jcp.org/jcr/nt/1.0", Local: "folder"},
		Referenceable: true,
		ChildEntries:  []itemstate.ChildEntry{{Name: name, ID: childID}},
		ModCount:      3,
	}
	_, err := s.CreateNode(id, b)
	require.NoError(t, err)

	got, err := s.LoadBundle(id)
	require.NoError(t, err)
	require.Equal(t, b.PrimaryType, got.PrimaryType)
	require.True(t, got.Referenceable)
	require.Equal(t, uint32(3), got.ModCount)
	require.Len(t, got.ChildEntries, 1)
	require.Equal(t, childID, got.ChildEntries[0].ID)
}

func TestBlobStorePutGetRemove(t *testing.T) {
	s := openTestStore(t)

	propID := itemstate.PropertyId{Parent: itemstate.NewNodeId(), Name: itemstate.Name{Local: "data"}}
	id, err := s.CreateID(propID, 0)
	require.NoError(t, err)

	payload := []byte("store-backed blob")
	require.NoError(t, s.Put(id, bytes.NewReader(payload), int64(len(payload))))

	r, err := s.Get(id)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, s.Remove(id))
	_, err = s.Get(id)
	require.Error(t, err)
}

func TestReferenceIndex(t *testing.T) {
	s := openTestStore(t)

	target := itemstate.NewNodeId()
	owner := itemstate.NewNodeId()
	refPropID := itemstate.PropertyId{Parent: owner, Name: itemstate.Name{Local: "ref"}}

	b := &bundle.NodeBundle{
		PrimaryType: itemstate.Name{Local: "referrer"},
		Properties: []itemstate.PropertyState{
			{
				ID:     refPropID,
				Type:   itemstate.TypeReference,
				Values: []itemstate.Value{{Node: target}},
			},
		},
	}
	_, err := s.CreateNode(owner, b)
	require.NoError(t, err)

	require.True(t, s.HasNodeReferences(target))
	refs, err := s.GetNodeReferences(target)
	require.NoError(t, err)
	require.Equal(t, []itemstate.PropertyId{refPropID}, refs)
}
