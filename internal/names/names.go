// Package names holds BundleNames: the fixed, ordered dictionary of
// well-known (namespace URI, local name) pairs the bundle codec maps
// to small indices 0..127 (spec.md §4.2). The list is part of the wire
// format — entries are appended only, and only when the bundle format
// version is bumped; never reordered, never removed.
package names

import "github.com/corewell/noderepo/internal/itemstate"

const (
	nsJCR   = "http://www.jcp.org/jcr/1.0"
	nsNT    = "http://www.jcp.org/jcr/nt/1.0"
	nsMix   = "http://www.jcp.org/jcr/mix/1.0"
	nsRep   = "internal"
	nsEmpty = ""
)

func n(uri, local string) itemstate.Name {
	return itemstate.Name{URI: uri, Local: local}
}

// bundleNames is the index-ordered dictionary. Index 0 is the null
// sentinel (itemstate.NilName), used as an end-of-list marker for
// mixins and properties in the wire format. Additions are only ever
// appended at the end of this table (format version v1 below).
var bundleNames = [...]itemstate.Name{
	0:  itemstate.NilName,
	1:  n(nsJCR, "primaryType"),
	2:  n(nsJCR, "mixinTypes"),
	3:  n(nsJCR, "uuid"),
	4:  n(nsJCR, "created"),
	5:  n(nsJCR, "createdBy"),
	6:  n(nsJCR, "lastModified"),
	7:  n(nsJCR, "lastModifiedBy"),
	8:  n(nsJCR, "content"),
	9:  n(nsJCR, "data"),
	10: n(nsJCR, "encoding"),
	11: n(nsJCR, "mimeType"),
	12: n(nsJCR, "title"),
	13: n(nsJCR, "description"),
	14: n(nsJCR, "language"),
	15: n(nsJCR, "baseVersion"),
	16: n(nsJCR, "predecessors"),
	17: n(nsJCR, "successors"),
	18: n(nsJCR, "versionHistory"),
	19: n(nsJCR, "isCheckedOut"),
	20: n(nsJCR, "frozenNode"),
	21: n(nsNT, "base"),
	22: n(nsNT, "unstructured"),
	23: n(nsNT, "folder"),
	24: n(nsNT, "file"),
	25: n(nsNT, "resource"),
	26: n(nsNT, "hierarchyNode"),
	27: n(nsNT, "linkedFile"),
	28: n(nsNT, "query"),
	29: n(nsNT, "version"),
	30: n(nsNT, "versionHistory"),
	31: n(nsNT, "versionedChild"),
	32: n(nsMix, "referenceable"),
	33: n(nsMix, "versionable"),
	34: n(nsMix, "lockable"),
	35: n(nsMix, "shareable"),
	36: n(nsMix, "title"),
	37: n(nsMix, "created"),
	38: n(nsMix, "lastModified"),
	39: n(nsRep, "root"),
	40: n(nsRep, "system"),
	41: n(nsRep, "versionStorage"),
	42: n(nsRep, "nodeTypes"),
	43: n(nsRep, "namespaces"),
	44: n(nsRep, "privileges"),
	45: n(nsEmpty, "rootPrefix"),
}

var indexOf = func() map[itemstate.Name]int {
	m := make(map[itemstate.Name]int, len(bundleNames))
	for i, nm := range bundleNames {
		if i == 0 {
			continue // reserved sentinel, never a lookup target.
		}
		m[nm] = i
	}
	return m
}()

// Count is the number of defined slots, including the reserved
// sentinel at index 0.
const Count = len(bundleNames)

// NullIndex is the wire index of the null-Name sentinel.
const NullIndex = 0

// NameToIndex returns the well-known index for name, or -1 if name is
// not in the dictionary.
func NameToIndex(name itemstate.Name) int {
	if name.IsNil() {
		return NullIndex
	}
	if idx, ok := indexOf[name]; ok {
		return idx
	}
	return -1
}

// IndexToName returns the Name at the given well-known index, or
// itemstate.NilName with ok=false if i is out of range or undefined.
func IndexToName(i int) (itemstate.Name, bool) {
	if i < 0 || i >= len(bundleNames) {
		return itemstate.NilName, false
	}
	if i != 0 && bundleNames[i] == itemstate.NilName {
		return itemstate.NilName, false // undefined slot in the 0..127 range
	}
	return bundleNames[i], true
}
