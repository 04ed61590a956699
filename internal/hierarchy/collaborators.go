package hierarchy

import "github.com/corewell/noderepo/internal/itemstate"

// ItemStateManager is the consumed lookup-by-id collaborator (spec.md
// §6). The Java-shaped `getItemState(id) -> NodeState | PropertyState`
// is split here into a typed node accessor plus the reference-tracking
// pair, since the hierarchy manager only ever resolves nodes by id
// (property lookups are answered from the owning node's property-name
// set, never fetched independently).
type ItemStateManager interface {
	// NodeState returns the state for id, failing with
	// rerr.NoSuchItemState if id is unknown or rerr.ItemStateError on
	// any other lookup failure.
	NodeState(id itemstate.NodeId) (*itemstate.NodeState, error)

	// HasNodeState reports whether id is currently resolvable.
	HasNodeState(id itemstate.NodeId) bool

	// GetNodeReferences returns the REFERENCE properties that target
	// id.
	GetNodeReferences(id itemstate.NodeId) ([]itemstate.PropertyId, error)

	// HasNodeReferences reports whether any REFERENCE property targets
	// id.
	HasNodeReferences(id itemstate.NodeId) bool
}

// NamespaceRegistry is the consumed bidirectional prefix<->URI mapping
// (spec.md §6), read-only from the core's perspective.
type NamespaceRegistry interface {
	URIForPrefix(prefix string) (string, bool)
	PrefixForURI(uri string) (string, bool)
}
