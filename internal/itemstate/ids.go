// Package itemstate models the in-memory item aggregates the hierarchy
// manager and bundle codec operate on: NodeState, PropertyState, and
// the structural listener contract between them.
package itemstate

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// NodeId is a 128-bit opaque identifier, MSB/LSB halves. Equality is
// bitwise equality.
type NodeId struct {
	MSB uint64
	LSB uint64
}

// NilNodeId is the zero-value sentinel, e.g. NodeState.OrderBefore's
// "move to the end" marker. The bundle wire format does not use it:
// NodeId lists there end with an absent-id presence byte.
var NilNodeId = NodeId{}

// IsNil reports whether id is the nil sentinel.
func (id NodeId) IsNil() bool {
	return id == NilNodeId
}

// String renders the id as "<msb>-<lsb>", each half as 16 lowercase
// hex digits.
func (id NodeId) String() string {
	return fmt.Sprintf("%016x-%016x", id.MSB, id.LSB)
}

// NewNodeId generates a fresh random NodeId. Identifiers are modeled as
// UUIDs (grounded on the pack's google/uuid usage) split into the two
// 64-bit halves the wire format expects.
func NewNodeId() NodeId {
	u := uuid.New()
	b := [16]byte(u)
	return NodeId{
		MSB: binary.BigEndian.Uint64(b[0:8]),
		LSB: binary.BigEndian.Uint64(b[8:16]),
	}
}

// Name is a (namespace URI, local name) pair: canonical, immutable,
// value-equal.
type Name struct {
	URI   string
	Local string
}

// NilName is the sentinel used as an end-of-list marker (mixins,
// properties) and is index 0 in the BundleNames dictionary.
var NilName = Name{}

// IsNil reports whether n is the nil sentinel.
func (n Name) IsNil() bool {
	return n == NilName
}

func (n Name) String() string {
	if n.URI == "" {
		return n.Local
	}
	return fmt.Sprintf("{%s}%s", n.URI, n.Local)
}

// PropertyId identifies a property by its owning node and local name.
type PropertyId struct {
	Parent NodeId
	Name   Name
}

func (id PropertyId) String() string {
	return fmt.Sprintf("%s/%s", id.Parent, id.Name)
}

// ItemIdKind discriminates the ItemId tagged union.
type ItemIdKind uint8

const (
	ItemIdNode ItemIdKind = iota
	ItemIdProperty
)

// ItemId is a tagged union of NodeId | PropertyId, used by the
// hierarchy manager's path->id map.
type ItemId struct {
	Kind     ItemIdKind
	Node     NodeId
	Property PropertyId
}

// NewNodeItemId wraps a NodeId as an ItemId.
func NewNodeItemId(id NodeId) ItemId {
	return ItemId{Kind: ItemIdNode, Node: id}
}

// NewPropertyItemId wraps a PropertyId as an ItemId.
func NewPropertyItemId(id PropertyId) ItemId {
	return ItemId{Kind: ItemIdProperty, Property: id}
}

// IsNode reports whether this ItemId addresses a node.
func (i ItemId) IsNode() bool {
	return i.Kind == ItemIdNode
}
