// Package hierarchy implements the caching hierarchy manager: a
// concurrent, event-driven cache mapping item ids to paths and back,
// kept coherent as nodes are added, removed, moved, renamed, reordered,
// or shared. Grounded on the teacher's internal/rebalancing package:
// a mutex-guarded struct with functional-option configuration and an
// injected collaborator (there Clock, here ItemStateManager) for
// deterministic tests.
package hierarchy

import (
	"sync"

	"github.com/corewell/noderepo/internal/itemstate"
	"github.com/hashicorp/golang-lru/v2"

	"github.com/corewell/noderepo/internal/metrics"
	"github.com/corewell/noderepo/internal/pathutil"
	"github.com/corewell/noderepo/internal/rerr"
)

const defaultNegativeCacheSize = 1024

// entry is one byPath slot.
type entry struct {
	path pathutil.Path
	id   itemstate.ItemId
}

// A node and a property may share the same name under the same parent
// (spec.md §4.6: "if both exist at the leaf step, prefer Node" implies
// both can exist). byPath therefore keys node and property results at
// the same textual path separately, so resolveNodePath and
// resolvePropertyPath can each succeed independently of the other.
func nodeKey(p pathutil.Path) string { return p.String() + "\x00N" }
func propKey(p pathutil.Path) string { return p.String() + "\x00P" }

// Manager is the caching hierarchy manager (spec.md §4.6). All
// mutation to byID, byPath, and the subscription set happens under mu,
// matching the single manager-wide lock spec.md §5 requires.
type Manager struct {
	mu sync.RWMutex

	ism    ItemStateManager
	rootID itemstate.NodeId

	byID       map[itemstate.NodeId]pathutil.Path
	byPath     map[string]entry
	subscribed map[itemstate.NodeId]*itemstate.NodeState

	// negative remembers paths a walk has confirmed absent, bounded so
	// a flood of lookups for nonexistent paths cannot grow unbounded
	// (spec.md §3 DOMAIN STACK: hierarchy manager negative-lookup
	// cache).
	negative *lru.Cache[string, struct{}]

	metrics *metrics.Recorder

	// generation increments on every applied structural event. A
	// resolve that spans a generation change does not install its
	// result into the cache (spec.md §5: install only if still
	// consistent, otherwise drop).
	generation uint64
}

// ManagerOption configures a Manager, the same functional-options
// shape as rebalancing.DetectorOption.
type ManagerOption func(*Manager)

// WithNegativeCacheSize overrides the default negative-lookup cache
// capacity (1024 entries).
func WithNegativeCacheSize(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			c, err := lru.New[string, struct{}](n)
			if err == nil {
				m.negative = c
			}
		}
	}
}

// WithMetrics attaches a Recorder for cache hit/miss/eviction counters.
func WithMetrics(rec *metrics.Recorder) ManagerOption {
	return func(m *Manager) {
		m.metrics = rec
	}
}

// NewManager creates a Manager rooted at rootID, backed by ism. The
// root node's state is fetched and cached immediately.
func NewManager(ism ItemStateManager, rootID itemstate.NodeId, opts ...ManagerOption) (*Manager, error) {
	negative, err := lru.New[string, struct{}](defaultNegativeCacheSize)
	if err != nil {
		return nil, rerr.Wrap("create negative cache", err)
	}

	m := &Manager{
		ism:        ism,
		rootID:     rootID,
		byID:       make(map[itemstate.NodeId]pathutil.Path),
		byPath:     make(map[string]entry),
		subscribed: make(map[itemstate.NodeId]*itemstate.NodeState),
		negative:   negative,
	}
	for _, opt := range opts {
		opt(m)
	}

	rootState, err := ism.NodeState(rootID)
	if err != nil {
		return nil, rerr.Wrap("fetch root node state", err)
	}

	root := pathutil.RootPath()
	m.mu.Lock()
	m.cacheNodeLocked(root, rootState)
	m.mu.Unlock()

	return m, nil
}

// cacheNodeLocked installs path -> state.ID into both maps and
// subscribes the manager as state's listener, if not already
// subscribed. Caller must hold mu.
func (m *Manager) cacheNodeLocked(path pathutil.Path, state *itemstate.NodeState) {
	m.byID[state.ID] = path
	m.byPath[nodeKey(path)] = entry{path: path, id: itemstate.NewNodeItemId(state.ID)}
	if _, ok := m.subscribed[state.ID]; !ok {
		state.SetListener(m)
		m.subscribed[state.ID] = state
	}
}

// cachePropertyLocked installs path -> propID, keyed separately from
// any node cached at the same path string.
func (m *Manager) cachePropertyLocked(path pathutil.Path, propID itemstate.PropertyId) {
	m.byPath[propKey(path)] = entry{path: path, id: itemstate.NewPropertyItemId(propID)}
}

// stepResult records one node visited during a root-to-leaf walk.
type stepResult struct {
	path  pathutil.Path
	state *itemstate.NodeState
}

// walkResult is what walk found at the leaf: a node, a property, both
// (a child node and a property may share a local name under the same
// parent), or neither.
type walkResult struct {
	visited  []stepResult
	node     itemstate.NodeId
	hasNode  bool
	property itemstate.PropertyId
	hasProp  bool
	// leafPath is path itself, recorded explicitly because a
	// property-only match leaves visited's last entry at the parent
	// node, not at the (non-existent) property's own NodeState.
	leafPath pathutil.Path
}

// walk resolves path by descending from the root through ItemStateManager
// lookups, never touching the cache. Unlike a short-circuiting lookup,
// it checks for both a node and a property match at the final step
// independently, since a node and a property of the same parent can
// share a local name.
func (m *Manager) walk(path pathutil.Path) (walkResult, bool, error) {
	rootState, ferr := m.ism.NodeState(m.rootID)
	if ferr != nil {
		if rerr.IsNoSuchItemState(ferr) {
			return walkResult{}, false, nil
		}
		return walkResult{}, false, ferr
	}

	currentState := rootState
	currentPath := pathutil.RootPath()
	visited := []stepResult{{path: currentPath, state: currentState}}

	elems := path.Elements
	start := 0
	if path.IsAbsolute() {
		start = 1
	}
	if start >= len(elems) {
		return walkResult{visited: visited, node: m.rootID, hasNode: true, leafPath: currentPath}, true, nil
	}

	for i := start; i < len(elems); i++ {
		elem := elems[i]
		last := i == len(elems)-1

		child, _, childOK := currentState.FindChild(elem.Name, elem.Index)
		hasProp := last && elem.Index == 1 && currentState.HasProperty(elem.Name)

		if !childOK {
			if hasProp {
				propID := itemstate.PropertyId{Parent: currentState.ID, Name: elem.Name}
				return walkResult{
					visited:  visited,
					property: propID,
					hasProp:  true,
					leafPath: currentPath.Append(elem),
				}, true, nil
			}
			return walkResult{visited: visited}, false, nil
		}

		childState, cerr := m.ism.NodeState(child.ID)
		if cerr != nil {
			if rerr.IsNoSuchItemState(cerr) {
				return walkResult{visited: visited}, false, nil
			}
			return walkResult{}, false, cerr
		}
		currentPath = currentPath.Append(elem)
		currentState = childState
		visited = append(visited, stepResult{path: currentPath, state: currentState})

		if last {
			res := walkResult{visited: visited, node: child.ID, hasNode: true, leafPath: currentPath}
			if hasProp {
				res.property = itemstate.PropertyId{Parent: visited[len(visited)-2].state.ID, Name: elem.Name}
				res.hasProp = true
			}
			return res, true, nil
		}
	}

	return walkResult{visited: visited}, false, nil
}

// ResolvePath resolves path to a node or property id, per spec.md
// §4.6: if both a node and a property exist at path, the node is
// preferred. ok is false if no such item exists.
func (m *Manager) ResolvePath(path pathutil.Path) (itemstate.ItemId, bool) {
	nk, pk := nodeKey(path), propKey(path)

	m.mu.RLock()
	if e, ok := m.byPath[nk]; ok {
		m.mu.RUnlock()
		m.metrics.Hit()
		return e.id, true
	}
	if e, ok := m.byPath[pk]; ok {
		m.mu.RUnlock()
		m.metrics.Hit()
		return e.id, true
	}
	if m.negative.Contains(nk) {
		m.mu.RUnlock()
		m.metrics.Hit()
		return itemstate.ItemId{}, false
	}
	gen := m.generation
	m.mu.RUnlock()
	m.metrics.Miss()

	res, found, err := m.walk(path)
	if err != nil {
		return itemstate.ItemId{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !found {
		if m.generation == gen {
			m.negative.Add(nk, struct{}{})
		}
		return itemstate.ItemId{}, false
	}
	if m.generation == gen {
		m.installWalkResultLocked(res)
	}
	if res.hasNode {
		return itemstate.NewNodeItemId(res.node), true
	}
	return itemstate.NewPropertyItemId(res.property), true
}

// ResolveNodePath resolves path restricted to a node result,
// independent of whether a same-named property also exists there.
func (m *Manager) ResolveNodePath(path pathutil.Path) (itemstate.NodeId, bool) {
	nk := nodeKey(path)

	m.mu.RLock()
	if e, ok := m.byPath[nk]; ok {
		m.mu.RUnlock()
		m.metrics.Hit()
		return e.id.Node, true
	}
	if m.negative.Contains(nk) {
		m.mu.RUnlock()
		m.metrics.Hit()
		return itemstate.NodeId{}, false
	}
	gen := m.generation
	m.mu.RUnlock()
	m.metrics.Miss()

	res, found, err := m.walk(path)
	if err != nil || !found {
		return itemstate.NodeId{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		if !res.hasNode {
			return itemstate.NodeId{}, false
		}
		return res.node, true
	}
	m.installWalkResultLocked(res)
	if !res.hasNode {
		m.negative.Add(nk, struct{}{})
		return itemstate.NodeId{}, false
	}
	return res.node, true
}

// ResolvePropertyPath resolves path restricted to a property result,
// independent of whether a same-named node also exists there.
func (m *Manager) ResolvePropertyPath(path pathutil.Path) (itemstate.PropertyId, bool) {
	pk := propKey(path)

	m.mu.RLock()
	if e, ok := m.byPath[pk]; ok {
		m.mu.RUnlock()
		m.metrics.Hit()
		return e.id.Property, true
	}
	gen := m.generation
	m.mu.RUnlock()
	m.metrics.Miss()

	res, found, err := m.walk(path)
	if err != nil || !found {
		return itemstate.PropertyId{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		if !res.hasProp {
			return itemstate.PropertyId{}, false
		}
		return res.property, true
	}
	m.installWalkResultLocked(res)
	if !res.hasProp {
		return itemstate.PropertyId{}, false
	}
	return res.property, true
}

// installWalkResultLocked caches every node visited plus, when
// present, the leaf property match. Caller holds mu.
func (m *Manager) installWalkResultLocked(res walkResult) {
	for _, v := range res.visited {
		m.cacheNodeLocked(v.path, v.state)
	}
	if res.hasProp {
		m.cachePropertyLocked(res.leafPath, res.property)
	}
}

// IsCached reports whether id currently has a cached path.
func (m *Manager) IsCached(id itemstate.NodeId) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byID[id]
	return ok
}

// GetPath returns the path to id, walking ancestors via parentID when
// not cached (spec.md §4.6).
func (m *Manager) GetPath(id itemstate.NodeId) (pathutil.Path, bool) {
	m.mu.RLock()
	if p, ok := m.byID[id]; ok {
		m.mu.RUnlock()
		m.metrics.Hit()
		return p, true
	}
	gen := m.generation
	m.mu.RUnlock()
	m.metrics.Miss()

	path, visited, found, err := m.walkUp(id)
	if err != nil || !found {
		return pathutil.Path{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		return path, true
	}
	for _, v := range visited {
		m.cacheNodeLocked(v.path, v.state)
	}
	return path, true
}

// walkUp builds id's path by recursing to its parent and locating the
// ChildEntry matching id, accumulating the states visited on the way
// (root first; order doesn't matter for installation).
func (m *Manager) walkUp(id itemstate.NodeId) (pathutil.Path, []stepResult, bool, error) {
	if id == m.rootID {
		state, err := m.ism.NodeState(id)
		if err != nil {
			if rerr.IsNoSuchItemState(err) {
				return pathutil.Path{}, nil, false, nil
			}
			return pathutil.Path{}, nil, false, err
		}
		return pathutil.RootPath(), []stepResult{{path: pathutil.RootPath(), state: state}}, true, nil
	}

	state, err := m.ism.NodeState(id)
	if err != nil {
		if rerr.IsNoSuchItemState(err) {
			return pathutil.Path{}, nil, false, nil
		}
		return pathutil.Path{}, nil, false, err
	}
	if state.ParentID == nil {
		return pathutil.Path{}, nil, false, nil
	}

	parentPath, visited, found, err := m.walkUp(*state.ParentID)
	if err != nil || !found {
		return pathutil.Path{}, visited, found, err
	}

	parentState, err := m.ism.NodeState(*state.ParentID)
	if err != nil {
		if rerr.IsNoSuchItemState(err) {
			return pathutil.Path{}, visited, false, nil
		}
		return pathutil.Path{}, visited, false, err
	}

	ce, index, ok := parentState.FindChildByID(id)
	if !ok {
		return pathutil.Path{}, visited, false, nil
	}

	myPath := parentPath.Append(pathutil.Named(ce.Name, index))
	visited = append(visited, stepResult{path: myPath, state: state})
	return myPath, visited, true, nil
}
