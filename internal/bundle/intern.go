package bundle

// internTable is the per-bundle namespace URI intern table: a
// fixed-size array of 7 slots, slot 0 immutably the default namespace
// URI ("" — the unprefixed namespace), the remaining six populated in
// order of first appearance (spec.md §3, §4.3, §9 Design Notes).
//
// Both Writer and Reader hold one of these per encode/decode and must
// populate it in lockstep: the writer assigns a slot the first time it
// sees a URI and emits the URI string only on that first assignment;
// the reader assigns the same slot the first time it reads that
// header shape and reads the URI string only then. Neither side needs
// an explicit "is this new" bit on the wire — slot occupancy alone
// determines it, provided both sides process headers in the same
// order.
type internTable struct {
	slots [maxInternSlots]string
	used  [maxInternSlots]bool
}

// overflowSlot is the wire encoding for "no slot available"; such URIs
// are written/read inline on every occurrence. It is one past the last
// storable slot (0..maxInternSlots-1 all hold real URIs), so the 3-bit
// NNN field's full 0..7 range is exactly "seven interned slots plus
// overflow" (spec.md §3, §4.3, §8).
const overflowSlot = maxInternSlots

func newInternTable() *internTable {
	t := &internTable{}
	t.slots[0] = ""
	t.used[0] = true
	return t
}

// assign finds (or creates) the slot for uri on the writer side,
// reporting whether this is the slot's first assignment (the writer
// must emit the URI string only when isNew is true).
func (t *internTable) assign(uri string) (slot int, isNew bool) {
	for i := 0; i < maxInternSlots; i++ {
		if t.used[i] && t.slots[i] == uri {
			return i, false
		}
	}
	for i := 0; i < maxInternSlots; i++ { // all maxInternSlots slots are storable; overflowSlot lies beyond them
		if !t.used[i] {
			t.slots[i] = uri
			t.used[i] = true
			return i, true
		}
	}
	return overflowSlot, true
}

// resolve returns the URI for slot on the reader side. ok is false if
// the slot hasn't been populated yet or is overflowSlot; the reader
// then reads the URI string inline from the stream.
func (t *internTable) resolve(slot int) (string, bool) {
	if slot == overflowSlot {
		return "", false // caller must always read the URI string for this slot
	}
	if !t.used[slot] {
		return "", false
	}
	return t.slots[slot], true
}

// populate records a freshly-read URI into slot on the reader side.
func (t *internTable) populate(slot int, uri string) {
	if slot == overflowSlot {
		return // not stored; every occurrence is read inline
	}
	t.slots[slot] = uri
	t.used[slot] = true
}
