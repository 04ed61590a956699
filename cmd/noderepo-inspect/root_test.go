package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corewell/noderepo/internal/itemstate"
)

func TestParseNodeIDRoundTrip(t *testing.T) {
	id := itemstate.NewNodeId()
	parsed, err := parseNodeID(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestParseNodeIDInvalid(t *testing.T) {
	_, err := parseNodeID("not-a-valid-id")
	require.Error(t, err)
}

func TestParsePath(t *testing.T) {
	p, err := parsePath("/a/b[2]/c")
	require.NoError(t, err)
	require.Equal(t, "/a/b[2]/c", p.String())

	root, err := parsePath("/")
	require.NoError(t, err)
	require.True(t, root.IsRoot())

	_, err = parsePath("a/b")
	require.Error(t, err)
}
