// Package bundle implements the node bundle codec: a compact,
// self-describing binary serialization of a node and all its inlined
// properties (spec.md §4.3–§4.4), grounded on the teacher's
// internal/core object-header parser (bit-packed headers, a version
// byte dispatching to a version-specific decoder, signature-free
// length-delimited sections).
package bundle

import "github.com/corewell/noderepo/internal/itemstate"

// FormatVersion is the current wire format version, written as the
// first byte of every encoded bundle. Encoders always emit this
// version; readers dispatch on it and must keep older versions
// readable (spec.md §4.4, §9).
const FormatVersion uint8 = 1

// Sentinel 32-bit markers for BINARY placement, distinct from any
// plausible inline length (spec.md §6).
const (
	BinaryInDataStore uint32 = 0xFFFFFFFE
	BinaryInBlobStore uint32 = 0xFFFFFFFD
)

// maxInternSlots is the per-bundle namespace intern table capacity:
// slot 0 (the default namespace) plus six custom slots (spec.md §3).
const maxInternSlots = 7

// NodeBundle is the codec-level representation of one node plus all
// its inlined properties, mixins, child references, and shared-parent
// set (spec.md §3).
type NodeBundle struct {
	PrimaryType   itemstate.Name
	ParentID      *itemstate.NodeId
	Mixins        []itemstate.Name
	Properties    []itemstate.PropertyState
	Referenceable bool
	ChildEntries  []itemstate.ChildEntry
	ModCount      uint32
	SharedSet     []itemstate.NodeId

	// Size is the measured byte length of the last encode/decode of
	// this bundle. It is always recomputed, never trusted from a
	// prior value (spec.md §3 invariant).
	Size int
}
