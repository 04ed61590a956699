package bundle

import (
	"bytes"
	"testing"

	"github.com/corewell/noderepo/internal/itemstate"
	"github.com/corewell/noderepo/internal/testutil"
	"github.com/stretchr/testify/require"
)

func binaryBundle(owner itemstate.NodeId, data []byte) *NodeBundle {
	return &NodeBundle{
		PrimaryType: simpleName("file"),
		Properties: []itemstate.PropertyState{
			{
				ID:   itemstate.PropertyId{Name: simpleName("payload")},
				Type: itemstate.TypeBinary,
				Values: []itemstate.Value{
					{Small: data},
				},
			},
		},
	}
}

func TestWriteBinarySmallStaysInline(t *testing.T) {
	owner := itemstate.NodeId{MSB: 1}
	b := binaryBundle(owner, []byte("tiny"))

	blobs := testutil.NewFakeBlobStore()
	binding := NewBinding(blobs, WithBlobMinSize(4096))

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, binding).Write(owner, b))

	decoded, err := NewReader(&buf, binding).Read(owner)
	require.NoError(t, err)
	require.Equal(t, []byte("tiny"), decoded.Properties[0].Values[0].Small)
	require.Empty(t, decoded.Properties[0].Values[0].BlobID)
}

func TestWriteBinaryLargeGoesToBlobStore(t *testing.T) {
	owner := itemstate.NodeId{MSB: 2}
	large := bytes.Repeat([]byte("x"), 5000)
	b := binaryBundle(owner, large)

	blobs := testutil.NewFakeBlobStore()
	binding := NewBinding(blobs, WithBlobMinSize(4096))

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, binding).Write(owner, b))
	require.NotEmpty(t, b.Properties[0].Values[0].BlobID)
	require.True(t, blobs.Contains(b.Properties[0].Values[0].BlobID))

	decoded, err := NewReader(&buf, binding).Read(owner)
	require.NoError(t, err)
	require.Equal(t, b.Properties[0].Values[0].BlobID, decoded.Properties[0].Values[0].BlobID)
	require.False(t, decoded.Properties[0].Values[0].InDataStore)
}

func TestWriteBinaryUsesDataStoreWhenConfigured(t *testing.T) {
	owner := itemstate.NodeId{MSB: 3}
	// Below DataStore.MinRecordLength()-1, routed inline rather than
	// to the DataStore (spec.md §4.3 binary placement step 1).
	tiny := []byte("hi")
	b := binaryBundle(owner, tiny)

	blobs := testutil.NewFakeBlobStore()
	ds := testutil.NewFakeDataStore(16)
	binding := NewBinding(blobs, WithDataStore(ds))

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, binding).Write(owner, b))

	decoded, err := NewReader(&buf, binding).Read(owner)
	require.NoError(t, err)
	require.Equal(t, tiny, decoded.Properties[0].Values[0].Small)
}

func TestWriteBinaryDataStoreAboveThreshold(t *testing.T) {
	owner := itemstate.NodeId{MSB: 4}
	data := bytes.Repeat([]byte("y"), 64)
	b := binaryBundle(owner, data)

	blobs := testutil.NewFakeBlobStore()
	ds := testutil.NewFakeDataStore(16)
	binding := NewBinding(blobs, WithDataStore(ds))

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, binding).Write(owner, b))
	require.True(t, b.Properties[0].Values[0].InDataStore)
	require.NotEmpty(t, b.Properties[0].Values[0].BlobID)

	decoded, err := NewReader(&buf, binding).Read(owner)
	require.NoError(t, err)
	require.True(t, decoded.Properties[0].Values[0].InDataStore)
	require.Equal(t, b.Properties[0].Values[0].BlobID, decoded.Properties[0].Values[0].BlobID)
}

func TestWriteBinaryWithExistingBlobIDSkipsPlacementPolicy(t *testing.T) {
	owner := itemstate.NodeId{MSB: 5}
	blobs := testutil.NewFakeBlobStore()
	require.NoError(t, blobs.Put("preexisting", bytes.NewReader([]byte("payload")), 7))

	b := &NodeBundle{
		PrimaryType: simpleName("file"),
		Properties: []itemstate.PropertyState{
			{
				ID:   itemstate.PropertyId{Name: simpleName("payload")},
				Type: itemstate.TypeBinary,
				Values: []itemstate.Value{
					{BlobID: "preexisting"},
				},
			},
		},
	}

	binding := NewBinding(blobs)
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, binding).Write(owner, b))

	decoded, err := NewReader(&buf, binding).Read(owner)
	require.NoError(t, err)
	require.Equal(t, "preexisting", decoded.Properties[0].Values[0].BlobID)
}

// TestNamespaceInternOverflow exercises more distinct namespace URIs
// than the 7 intern slots can hold: the 8th+ URI must fall back to the
// overflow slot and be written inline on every occurrence, and both
// sides must still agree on every Name (spec.md §4.3 intern table).
func TestNamespaceInternOverflow(t *testing.T) {
	owner := itemstate.NodeId{MSB: 6}
	b := &NodeBundle{PrimaryType: simpleName("unstructured")}
	for i := 0; i < 8; i++ {
		uri := string(rune('a' + i))
		b.Properties = append(b.Properties, itemstate.PropertyState{
			ID:   itemstate.PropertyId{Name: itemstate.Name{URI: "ns:" + uri, Local: "p"}},
			Type: itemstate.TypeLong,
			Values: []itemstate.Value{
				{Long: int64(i)},
			},
		})
	}

	blobs := testutil.NewFakeBlobStore()
	binding := NewBinding(blobs)

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, binding).Write(owner, b))

	decoded, err := NewReader(&buf, binding).Read(owner)
	require.NoError(t, err)
	require.Len(t, decoded.Properties, 8)
	for i := 0; i < 8; i++ {
		require.Equal(t, b.Properties[i].ID.Name, decoded.Properties[i].ID.Name)
		require.Equal(t, b.Properties[i].Values[0].Long, decoded.Properties[i].Values[0].Long)
	}
}

func TestWriterRejectsMalformedSingleValuedProperty(t *testing.T) {
	owner := itemstate.NodeId{MSB: 7}
	b := &NodeBundle{
		PrimaryType: simpleName("unstructured"),
		Properties: []itemstate.PropertyState{
			{
				ID:     itemstate.PropertyId{Name: simpleName("bad")},
				Type:   itemstate.TypeLong,
				Values: nil,
			},
		},
	}

	blobs := testutil.NewFakeBlobStore()
	binding := NewBinding(blobs)
	var buf bytes.Buffer
	err := NewWriter(&buf, binding).Write(owner, b)
	require.Error(t, err)
}
