package bundle

import (
	"bytes"
	"testing"

	"github.com/corewell/noderepo/internal/itemstate"
	"github.com/corewell/noderepo/internal/testutil"
	"github.com/stretchr/testify/require"
)

func simpleName(local string) itemstate.Name {
	return itemstate.Name{URI: "custom:ns", Local: local}
}

func sampleBundle() (itemstate.NodeId, *NodeBundle) {
	owner := itemstate.NodeId{MSB: 1, LSB: 2}
	parent := itemstate.NodeId{MSB: 9, LSB: 9}
	child1 := itemstate.NodeId{MSB: 3, LSB: 1}
	child2 := itemstate.NodeId{MSB: 3, LSB: 2}
	shared := itemstate.NodeId{MSB: 7, LSB: 7}

	b := &NodeBundle{
		PrimaryType: simpleName("folder"),
		ParentID:    &parent,
		Mixins:      []itemstate.Name{simpleName("referenceable")},
		Properties: []itemstate.PropertyState{
			{
				ID:   itemstate.PropertyId{Parent: owner, Name: simpleName("title")},
				Type: itemstate.TypeString,
				Values: []itemstate.Value{
					{String: "hello world"},
				},
			},
			{
				ID:          itemstate.PropertyId{Parent: owner, Name: simpleName("tags")},
				Type:        itemstate.TypeString,
				MultiValued: true,
				ModCount:    3,
				Values: []itemstate.Value{
					{String: "a"}, {String: "b"}, {String: "c"},
				},
			},
			{
				ID:   itemstate.PropertyId{Parent: owner, Name: simpleName("count")},
				Type: itemstate.TypeLong,
				Values: []itemstate.Value{
					{Long: 42},
				},
			},
			{
				ID:   itemstate.PropertyId{Parent: owner, Name: simpleName("ratio")},
				Type: itemstate.TypeDouble,
				Values: []itemstate.Value{
					{Double: 3.5},
				},
			},
			{
				ID:   itemstate.PropertyId{Parent: owner, Name: simpleName("flag")},
				Type: itemstate.TypeBoolean,
				Values: []itemstate.Value{
					{Bool: true},
				},
			},
		},
		Referenceable: true,
		ChildEntries: []itemstate.ChildEntry{
			{Name: simpleName("b"), ID: child1},
			{Name: simpleName("b"), ID: child2},
		},
		ModCount:  5,
		SharedSet: []itemstate.NodeId{shared},
	}
	return owner, b
}

func TestRoundTrip(t *testing.T) {
	owner, b := sampleBundle()
	blobs := testutil.NewFakeBlobStore()
	binding := NewBinding(blobs)

	var buf bytes.Buffer
	w := NewWriter(&buf, binding)
	require.NoError(t, w.Write(owner, b))
	require.Positive(t, b.Size)

	r := NewReader(&buf, binding)
	decoded, err := r.Read(owner)
	require.NoError(t, err)

	require.Equal(t, b.PrimaryType, decoded.PrimaryType)
	require.Equal(t, *b.ParentID, *decoded.ParentID)
	require.Equal(t, b.Mixins, decoded.Mixins)
	require.Equal(t, b.Referenceable, decoded.Referenceable)
	require.Equal(t, b.ChildEntries, decoded.ChildEntries)
	require.Equal(t, b.ModCount, decoded.ModCount)
	require.Equal(t, b.SharedSet, decoded.SharedSet)
	require.Equal(t, len(b.Properties), len(decoded.Properties))
	for i := range b.Properties {
		require.Equal(t, b.Properties[i].ID, decoded.Properties[i].ID)
		require.Equal(t, b.Properties[i].Type, decoded.Properties[i].Type)
		require.Equal(t, b.Properties[i].MultiValued, decoded.Properties[i].MultiValued)
		require.Equal(t, b.Properties[i].Values, decoded.Properties[i].Values)
	}
	require.Equal(t, decoded.Size, b.Size)
}

func TestRoundTripNoParentNoMixinsNoChildren(t *testing.T) {
	owner := itemstate.NodeId{MSB: 1}
	b := &NodeBundle{PrimaryType: simpleName("unstructured")}

	blobs := testutil.NewFakeBlobStore()
	binding := NewBinding(blobs)

	var buf bytes.Buffer
	w := NewWriter(&buf, binding)
	require.NoError(t, w.Write(owner, b))

	r := NewReader(&buf, binding)
	decoded, err := r.Read(owner)
	require.NoError(t, err)
	require.Nil(t, decoded.ParentID)
	require.Empty(t, decoded.Mixins)
	require.Empty(t, decoded.ChildEntries)
	require.Empty(t, decoded.SharedSet)
}

func TestEncodeDecodeIsByteIdentical(t *testing.T) {
	owner, b := sampleBundle()
	blobs := testutil.NewFakeBlobStore()
	binding := NewBinding(blobs)

	var buf1 bytes.Buffer
	require.NoError(t, NewWriter(&buf1, binding).Write(owner, b))

	decoded, err := NewReader(bytes.NewReader(buf1.Bytes()), binding).Read(owner)
	require.NoError(t, err)

	var buf2 bytes.Buffer
	require.NoError(t, NewWriter(&buf2, binding).Write(owner, decoded))

	require.Equal(t, buf1.Bytes(), buf2.Bytes())
}
