package hierarchy_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corewell/noderepo/internal/hierarchy"
	"github.com/corewell/noderepo/internal/itemstate"
	"github.com/corewell/noderepo/internal/pathutil"
	"github.com/corewell/noderepo/internal/testutil"
)

var jcrName = itemstate.Name{Local: "nt:unstructured"}

func named(local string) itemstate.Name {
	return itemstate.Name{Local: local}
}

// addChild appends child under parent and records the parent linkage,
// since NodeState.AddChild only maintains the parent's child list
// (shared nodes may have no single primary parent to set).
func addChild(parent, child *itemstate.NodeState, name itemstate.Name) {
	parent.AddChild(name, child.ID)
	parentID := parent.ID
	child.SetParentID(&parentID)
}

// newFixture builds a root with a single child named "a",
// returning the manager, the fake backing store, root id, and "a"'s id.
func newFixture(t *testing.T) (*hierarchy.Manager, *testutil.FakeItemStateManager, *itemstate.NodeState, *itemstate.NodeState) {
	t.Helper()

	ism := testutil.NewFakeItemStateManager()
	root := itemstate.New(itemstate.NewNodeId(), jcrName)
	ism.AddNode(root)

	a := itemstate.New(itemstate.NewNodeId(), jcrName)
	ism.AddNode(a)
	addChild(root, a, named("a"))

	m, err := hierarchy.NewManager(ism, root.ID)
	require.NoError(t, err)

	return m, ism, root, a
}

func TestResolveNodePropertyPath(t *testing.T) {
	m, ism, _, a := newFixture(t)

	b := itemstate.New(itemstate.NewNodeId(), jcrName)
	ism.AddNode(b)
	addChild(a, b, named("b"))

	pathAB := pathutil.RootPath().Append(pathutil.Named(named("a"), 1)).Append(pathutil.Named(named("b"), 1))

	nodeID, ok := m.ResolveNodePath(pathAB)
	require.True(t, ok)
	require.Equal(t, b.ID, nodeID)

	_, ok = m.ResolvePropertyPath(pathAB)
	require.False(t, ok)

	a.AddProperty(named("b"))

	nodeID, ok = m.ResolveNodePath(pathAB)
	require.True(t, ok)
	require.Equal(t, b.ID, nodeID)

	propID, ok := m.ResolvePropertyPath(pathAB)
	require.True(t, ok)
	require.Equal(t, a.ID, propID.Parent)
	require.Equal(t, named("b"), propID.Name)

	a.RemoveChild(b.ID)

	_, ok = m.ResolveNodePath(pathAB)
	require.False(t, ok)

	propID, ok = m.ResolvePropertyPath(pathAB)
	require.True(t, ok)
	require.Equal(t, named("b"), propID.Name)
}

func TestCloneAndRemove(t *testing.T) {
	m, ism, root, _ := newFixture(t)

	a1 := itemstate.New(itemstate.NewNodeId(), jcrName)
	ism.AddNode(a1)
	addChild(root, a1, named("a1"))

	a2 := itemstate.New(itemstate.NewNodeId(), jcrName)
	ism.AddNode(a2)
	addChild(root, a2, named("a2"))

	b := itemstate.New(itemstate.NewNodeId(), jcrName)
	ism.AddNode(b)
	addChild(a1, b, named("b1"))
	b.AddShare(a2.ID)
	a2.AddChild(named("b2"), b.ID)

	pathA1B1 := pathutil.RootPath().Append(pathutil.Named(named("a1"), 1)).Append(pathutil.Named(named("b1"), 1))
	pathA2B2 := pathutil.RootPath().Append(pathutil.Named(named("a2"), 1)).Append(pathutil.Named(named("b2"), 1))

	id1, ok := m.ResolveNodePath(pathA1B1)
	require.True(t, ok)
	require.Equal(t, b.ID, id1)

	id2, ok := m.ResolveNodePath(pathA2B2)
	require.True(t, ok)
	require.Equal(t, b.ID, id2)

	a1.RemoveChild(b.ID)

	_, ok = m.ResolveNodePath(pathA1B1)
	require.False(t, ok)

	id2, ok = m.ResolveNodePath(pathA2B2)
	require.True(t, ok)
	require.Equal(t, b.ID, id2)
}

func TestMove(t *testing.T) {
	m, ism, root, _ := newFixture(t)

	a1 := itemstate.New(itemstate.NewNodeId(), jcrName)
	ism.AddNode(a1)
	addChild(root, a1, named("a1"))

	a2 := itemstate.New(itemstate.NewNodeId(), jcrName)
	ism.AddNode(a2)
	addChild(root, a2, named("a2"))

	b1 := itemstate.New(itemstate.NewNodeId(), jcrName)
	ism.AddNode(b1)
	addChild(a1, b1, named("b1"))

	path, ok := m.GetPath(b1.ID)
	require.True(t, ok)
	require.Equal(t, "/a1/b1", path.String())

	a1.RemoveChild(b1.ID)
	a2.AddChild(named("b2"), b1.ID)
	b1.SetParentID(&a2.ID)

	path, ok = m.GetPath(b1.ID)
	require.True(t, ok)
	require.Equal(t, "/a2/b2", path.String())
}

func TestOrderBefore(t *testing.T) {
	m, ism, _, a := newFixture(t)

	b1 := itemstate.New(itemstate.NewNodeId(), jcrName)
	ism.AddNode(b1)
	addChild(a, b1, named("b"))

	b2 := itemstate.New(itemstate.NewNodeId(), jcrName)
	ism.AddNode(b2)
	a.AddChild(named("b"), b2.ID)
	b2.SetParentID(&a.ID)

	b3 := itemstate.New(itemstate.NewNodeId(), jcrName)
	ism.AddNode(b3)
	a.AddChild(named("b"), b3.ID)
	b3.SetParentID(&a.ID)

	path, ok := m.GetPath(b1.ID)
	require.True(t, ok)
	require.Equal(t, "/a/b", path.String())

	a.OrderBefore(b2.ID, b1.ID)
	a.OrderBefore(b1.ID, b3.ID)

	path, ok = m.GetPath(b1.ID)
	require.True(t, ok)
	require.Equal(t, "/a/b[2]", path.String())
}

func TestRemoveEvictsSubtree(t *testing.T) {
	m, ism, _, a := newFixture(t)

	b := itemstate.New(itemstate.NewNodeId(), jcrName)
	ism.AddNode(b)
	addChild(a, b, named("b"))

	c := itemstate.New(itemstate.NewNodeId(), jcrName)
	ism.AddNode(c)
	addChild(b, c, named("c"))

	pathABC := pathutil.RootPath().
		Append(pathutil.Named(named("a"), 1)).
		Append(pathutil.Named(named("b"), 1)).
		Append(pathutil.Named(named("c"), 1))

	_, ok := m.ResolveNodePath(pathABC)
	require.True(t, ok)
	require.True(t, m.IsCached(c.ID))

	a.RemoveChild(b.ID)

	require.False(t, m.IsCached(c.ID))
}

func TestRename(t *testing.T) {
	m, ism, root, _ := newFixture(t)

	a1 := itemstate.New(itemstate.NewNodeId(), jcrName)
	ism.AddNode(a1)
	addChild(root, a1, named("a1"))

	first := itemstate.New(itemstate.NewNodeId(), jcrName)
	ism.AddNode(first)
	addChild(a1, first, named("b"))

	second := itemstate.New(itemstate.NewNodeId(), jcrName)
	ism.AddNode(second)
	addChild(a1, second, named("b"))

	path, ok := m.GetPath(second.ID)
	require.True(t, ok)
	require.Equal(t, "/a1/b[2]", path.String())

	a1.Rename(first.ID, named("b1"))

	path, ok = m.GetPath(first.ID)
	require.True(t, ok)
	require.Equal(t, "/a1/b1", path.String())

	path, ok = m.GetPath(second.ID)
	require.True(t, ok)
	require.Equal(t, "/a1/b", path.String())
}

func TestConcurrentResolveNodePathSmoke(t *testing.T) {
	ism := testutil.NewFakeItemStateManager()
	root := itemstate.New(itemstate.NewNodeId(), jcrName)
	ism.AddNode(root)

	a1 := itemstate.New(itemstate.NewNodeId(), jcrName)
	ism.AddNode(a1)
	addChild(root, a1, named("a1"))

	m, err := hierarchy.NewManager(ism, root.ID)
	require.NoError(t, err)

	path := pathutil.RootPath().Append(pathutil.Named(named("a1"), 1))

	var wg sync.WaitGroup
	deadline := time.Now().Add(time.Second)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) {
				m.ResolveNodePath(path)
			}
		}()
	}
	wg.Wait()
}
