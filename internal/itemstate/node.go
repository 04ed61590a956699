package itemstate

import "sync"

// NodeState is the in-memory aggregate for one node: its identity,
// primary type, parent linkage, ordered child list, property-name set,
// and (for shareable nodes) its alternate parents. Parent and child
// linkage are NodeId values rather than direct pointers — this is what
// lets a shareable node have more than one parent without an ownership
// cycle (spec.md §9, Design Notes).
type NodeState struct {
	mu sync.Mutex

	ID          NodeId
	PrimaryType Name
	ParentID    *NodeId
	Status      NodeStatus
	Mixins      []Name

	Children   []ChildEntry
	properties map[Name]struct{}
	SharedSet  []NodeId

	listener Listener
}

// New creates a fresh NodeState with the given id and primary type.
func New(id NodeId, primaryType Name) *NodeState {
	return &NodeState{
		ID:          id,
		PrimaryType: primaryType,
		Status:      StatusNew,
		properties:  make(map[Name]struct{}),
	}
}

// Hydrate builds a NodeState directly from persisted fields, without
// firing any listener event: the state is being created by an
// ItemStateManager reading a stored bundle, not mutated live (spec.md
// §3 Lifecycle: "NodeState is created by the ItemStateManager"). The
// returned state has no listener subscribed yet.
func Hydrate(id NodeId, primaryType Name, parentID *NodeId, mixins []Name, children []ChildEntry, propertyNames []Name, sharedSet []NodeId, status NodeStatus) *NodeState {
	props := make(map[Name]struct{}, len(propertyNames))
	for _, n := range propertyNames {
		props[n] = struct{}{}
	}
	return &NodeState{
		ID:          id,
		PrimaryType: primaryType,
		ParentID:    parentID,
		Status:      status,
		Mixins:      append([]Name(nil), mixins...),
		Children:    append([]ChildEntry(nil), children...),
		properties:  props,
		SharedSet:   append([]NodeId(nil), sharedSet...),
	}
}

// SetListener installs the hierarchy cache (or any single observer) as
// this state's structural listener. Passing nil clears it.
func (n *NodeState) SetListener(l Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listener = l
}

// HasListener reports whether a listener is currently subscribed.
func (n *NodeState) HasListener() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.listener != nil
}

// PropertyNames returns the set of local property names on this node.
func (n *NodeState) PropertyNames() []Name {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Name, 0, len(n.properties))
	for name := range n.properties {
		out = append(out, name)
	}
	return out
}

// HasProperty reports whether name is a property of this node.
func (n *NodeState) HasProperty(name Name) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.properties[name]
	return ok
}

// AddProperty records a property name on this node and fires
// NodeModified.
func (n *NodeState) AddProperty(name Name) {
	n.mu.Lock()
	n.properties[name] = struct{}{}
	l := n.listener
	n.mu.Unlock()
	if l != nil {
		l.NodeModified(n)
	}
}

// RemoveProperty drops a property name from this node and fires
// NodeModified.
func (n *NodeState) RemoveProperty(name Name) {
	n.mu.Lock()
	delete(n.properties, name)
	l := n.listener
	n.mu.Unlock()
	if l != nil {
		l.NodeModified(n)
	}
}

// snsIndexLocked computes the 1-based SNS index of the child at
// position pos: the count of same-named predecessors, plus one.
// Caller must hold n.mu.
func (n *NodeState) snsIndexLocked(pos int) int {
	idx := 1
	name := n.Children[pos].Name
	for i := 0; i < pos; i++ {
		if n.Children[i].Name == name {
			idx++
		}
	}
	return idx
}

// AddChild appends a new child entry and fires NodeAdded with its
// 1-based SNS index.
func (n *NodeState) AddChild(name Name, id NodeId) int {
	n.mu.Lock()
	n.Children = append(n.Children, ChildEntry{Name: name, ID: id})
	index := n.snsIndexLocked(len(n.Children) - 1)
	l := n.listener
	n.mu.Unlock()

	if l != nil {
		l.NodeAdded(n, name, index, id)
	}
	return index
}

// RemoveChild removes the child entry matching id, firing NodeRemoved
// with the index it held at the moment of removal. Returns false if no
// such child exists.
func (n *NodeState) RemoveChild(id NodeId) bool {
	n.mu.Lock()
	pos := -1
	for i, c := range n.Children {
		if c.ID == id {
			pos = i
			break
		}
	}
	if pos == -1 {
		n.mu.Unlock()
		return false
	}

	entry := n.Children[pos]
	index := n.snsIndexLocked(pos)
	n.Children = append(n.Children[:pos], n.Children[pos+1:]...)
	l := n.listener
	n.mu.Unlock()

	if l != nil {
		l.NodeRemoved(n, entry.Name, index, entry.ID)
	}
	return true
}

// Rename removes the child with id and re-adds it under newName,
// expressed as nodeRemoved + nodeAdded per spec.md §4.6.
func (n *NodeState) Rename(id NodeId, newName Name) bool {
	if !n.RemoveChild(id) {
		return false
	}
	n.AddChild(newName, id)
	return true
}

// ReorderChildren replaces the child-entry list wholesale and fires
// NodesReplaced (used for orderBefore-style reordering, where multiple
// SNS indexes may shift at once).
func (n *NodeState) ReorderChildren(newOrder []ChildEntry) {
	n.mu.Lock()
	n.Children = newOrder
	l := n.listener
	n.mu.Unlock()

	if l != nil {
		l.NodesReplaced(n)
	}
}

// OrderBefore moves the child `id` to sit immediately before `before`
// in this node's child list (or to the end if before is the nil id),
// then replaces the list wholesale.
func (n *NodeState) OrderBefore(id, before NodeId) bool {
	n.mu.Lock()
	var moved ChildEntry
	found := false
	rest := make([]ChildEntry, 0, len(n.Children))
	for _, c := range n.Children {
		if c.ID == id {
			moved = c
			found = true
			continue
		}
		rest = append(rest, c)
	}
	if !found {
		n.mu.Unlock()
		return false
	}

	var newOrder []ChildEntry
	if before.IsNil() {
		newOrder = append(rest, moved)
	} else {
		newOrder = make([]ChildEntry, 0, len(rest)+1)
		inserted := false
		for _, c := range rest {
			if c.ID == before {
				newOrder = append(newOrder, moved)
				inserted = true
			}
			newOrder = append(newOrder, c)
		}
		if !inserted {
			newOrder = append(newOrder, moved)
		}
	}
	n.Children = newOrder
	l := n.listener
	n.mu.Unlock()

	if l != nil {
		l.NodesReplaced(n)
	}
	return true
}

// AddShare appends parentID to this node's shared-set, making it
// reachable from more than one parent. This does not rename or move
// the node under its primary parent.
func (n *NodeState) AddShare(parentID NodeId) {
	n.mu.Lock()
	n.SharedSet = append(n.SharedSet, parentID)
	l := n.listener
	n.mu.Unlock()

	if l != nil {
		l.NodeModified(n)
	}
}

// RemoveShare drops parentID from this node's shared-set.
func (n *NodeState) RemoveShare(parentID NodeId) {
	n.mu.Lock()
	for i, p := range n.SharedSet {
		if p == parentID {
			n.SharedSet = append(n.SharedSet[:i], n.SharedSet[i+1:]...)
			break
		}
	}
	l := n.listener
	n.mu.Unlock()

	if l != nil {
		l.NodeModified(n)
	}
}

// SetParentID updates this node's primary parent.
func (n *NodeState) SetParentID(id *NodeId) {
	n.mu.Lock()
	n.ParentID = id
	l := n.listener
	n.mu.Unlock()

	if l != nil {
		l.NodeModified(n)
	}
}

// Discard fires StateDiscarded, telling any subscriber to drop it.
func (n *NodeState) Discard() {
	n.mu.Lock()
	n.Status = StatusRemoved
	l := n.listener
	n.mu.Unlock()

	if l != nil {
		l.StateDiscarded(n)
	}
}

// ChildEntries returns a snapshot copy of this node's ordered children.
func (n *NodeState) ChildEntries() []ChildEntry {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]ChildEntry, len(n.Children))
	copy(out, n.Children)
	return out
}

// FindChild returns the ChildEntry and 1-based SNS index for a given
// name+index pair (index 0 matches the first child with that name;
// uniqueness is not checked), or ok=false if no such child exists.
func (n *NodeState) FindChild(name Name, index int) (ChildEntry, int, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	seen := 0
	for _, c := range n.Children {
		if c.Name != name {
			continue
		}
		seen++
		if index == 0 || seen == index {
			return c, seen, true
		}
	}
	return ChildEntry{}, 0, false
}

// FindChildByID returns the ChildEntry and 1-based SNS index for the
// child with the given id, or ok=false if no such child exists. Used
// by the hierarchy manager to reconstruct a path step from an id.
func (n *NodeState) FindChildByID(id NodeId) (ChildEntry, int, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, c := range n.Children {
		if c.ID == id {
			return c, n.snsIndexLocked(i), true
		}
	}
	return ChildEntry{}, 0, false
}
