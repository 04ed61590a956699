package hierarchy

import (
	"github.com/corewell/noderepo/internal/itemstate"
	"github.com/corewell/noderepo/internal/pathutil"
)

// NodeAdded implements itemstate.Listener. A new child does not get
// prefetched into the cache; same-named siblings whose SNS index
// shifted because of the insertion are evicted (spec.md §4.6 event
// application rules).
func (m *Manager) NodeAdded(parent *itemstate.NodeState, childName itemstate.Name, childIndex int, childID itemstate.NodeId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++

	// A path that a prior walk found absent may now exist.
	m.negative.Purge()

	parentPath, ok := m.byID[parent.ID]
	if !ok {
		return
	}
	m.evictSiblingsLocked(parentPath, childName, func(idx int) bool { return idx >= childIndex }, "nodeAdded")
}

// NodeRemoved implements itemstate.Listener. The removed subtree is
// evicted outright, and same-named siblings whose SNS index shifts
// down are evicted too (spec.md §10.1: renumbering on removal,
// cache entries invalidated rather than rewritten).
func (m *Manager) NodeRemoved(parent *itemstate.NodeState, childName itemstate.Name, childIndex int, childID itemstate.NodeId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++

	// A shareable child may be cached under another parent in byID, so
	// the path under this parent is evicted explicitly.
	parentPath, parentCached := m.byID[parent.ID]
	if parentCached {
		m.evictSubtreeLocked(parentPath.Append(pathutil.Named(childName, childIndex)), "nodeRemoved")
	}
	if removedPath, ok := m.byID[childID]; ok {
		m.evictSubtreeLocked(removedPath, "nodeRemoved")
	}

	if !parentCached {
		return
	}
	m.evictSiblingsLocked(parentPath, childName, func(idx int) bool { return idx > childIndex }, "nodeRemoved")
}

// NodeModified implements itemstate.Listener. A property-only change
// does not affect cached paths, but still bumps the generation so an
// in-flight resolve racing this mutation does not install a result
// that may already be stale by the time it lands.
func (m *Manager) NodeModified(state *itemstate.NodeState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
}

// NodesReplaced implements itemstate.Listener. Reordering may shift
// every child's SNS index, so every cached descendant of state is
// evicted; state's own cached entry survives.
func (m *Manager) NodesReplaced(state *itemstate.NodeState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++

	statePath, ok := m.byID[state.ID]
	if !ok {
		return
	}
	m.evictDescendantsLocked(statePath, "nodesReplaced")
}

// StateDiscarded implements itemstate.Listener. state and its
// subscription are dropped from the cache.
func (m *Manager) StateDiscarded(state *itemstate.NodeState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++

	if path, ok := m.byID[state.ID]; ok {
		m.evictSubtreeLocked(path, "stateDiscarded")
	}
	m.unsubscribeLocked(state.ID)
}

// unsubscribeLocked clears the manager's listener registration on the
// subscribed NodeState, if any, and removes it from subscribed. Caller
// holds mu. Unsubscribing on eviction is mandatory (spec.md §9): an
// evicted-but-still-subscribed state would keep invoking the manager
// on later mutations.
func (m *Manager) unsubscribeLocked(id itemstate.NodeId) {
	state, ok := m.subscribed[id]
	if !ok {
		return
	}
	state.SetListener(nil)
	delete(m.subscribed, id)
}

// evictSiblingsLocked evicts cached descendants of parentPath whose
// final element has name childName and an index for which match
// returns true. Caller holds mu.
func (m *Manager) evictSiblingsLocked(parentPath pathutil.Path, childName itemstate.Name, match func(index int) bool, reason string) {
	for key, e := range m.byPath {
		last, ok := e.path.LastElement()
		if !ok || last.Kind != pathutil.ElemNamed {
			continue
		}
		parentOf, ok := e.path.Parent()
		if !ok || !parentOf.Equal(parentPath) {
			continue
		}
		if last.Name == childName && match(last.Index) {
			m.evictEntryLocked(key, e, reason)
		}
	}
}

// evictSubtreeLocked evicts path and every cached entry whose path has
// path as a prefix (path itself included).
func (m *Manager) evictSubtreeLocked(path pathutil.Path, reason string) {
	for key, e := range m.byPath {
		if rel, ok := e.path.RelativeTo(path); ok {
			_ = rel
			m.evictEntryLocked(key, e, reason)
		}
	}
}

// evictDescendantsLocked evicts every cached entry strictly below
// path, leaving path's own entry untouched.
func (m *Manager) evictDescendantsLocked(path pathutil.Path, reason string) {
	for key, e := range m.byPath {
		if e.path.Equal(path) {
			continue
		}
		if _, ok := e.path.RelativeTo(path); ok {
			m.evictEntryLocked(key, e, reason)
		}
	}
}

func (m *Manager) evictEntryLocked(key string, e entry, reason string) {
	delete(m.byPath, key)
	if e.id.IsNode() {
		delete(m.byID, e.id.Node)
		m.unsubscribeLocked(e.id.Node)
	}
	m.metrics.Evict(reason)
}
