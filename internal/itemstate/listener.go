package itemstate

// Listener receives structural mutation events from a NodeState it is
// subscribed to. Events are delivered synchronously, under the source
// NodeState's own mutation critical section (spec.md §4.5) — an
// implementation must not block significantly inside these callbacks.
//
// A NodeState supports at most one Listener slot in this core;
// composing several observers is a caller concern (not provided here),
// matching spec.md §4.5's note that a composite listener is an
// implementation detail outside this core's scope.
type Listener interface {
	// NodeAdded reports a new child entry at the given 1-based SNS
	// index.
	NodeAdded(parent *NodeState, childName Name, childIndex int, childID NodeId)

	// NodeRemoved reports a child entry removed from the given
	// 1-based SNS index. Indexes above it are understood by
	// convention to shift down by one for same-named survivors; this
	// method does not walk siblings itself.
	NodeRemoved(parent *NodeState, childName Name, childIndex int, childID NodeId)

	// NodeModified reports an opaque change to state (property add/
	// remove/change that doesn't affect the child list).
	NodeModified(state *NodeState)

	// NodesReplaced reports that state's child-entry list was
	// replaced wholesale (reorder). SNS indexes may have shifted for
	// every child.
	NodesReplaced(state *NodeState)

	// StateDiscarded reports state is being removed from memory; any
	// subscriber must drop its own references to state.
	StateDiscarded(state *NodeState)
}
