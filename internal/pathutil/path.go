// Package pathutil implements canonical, comparable repository paths:
// an ordered sequence of elements, each a root marker, a named step
// carrying a 1-based same-name-sibling index, or a current/parent
// marker.
package pathutil

import (
	"strconv"
	"strings"

	"github.com/corewell/noderepo/internal/itemstate"
)

// ElementKind discriminates a PathElement.
type ElementKind uint8

const (
	ElemRoot ElementKind = iota
	ElemNamed
	ElemCurrent
	ElemParent
)

// PathElement is one step of a Path.
type PathElement struct {
	Kind  ElementKind
	Name  itemstate.Name
	Index int // 1-based SNS index; meaningful only when Kind == ElemNamed.
}

// Named constructs a named step with the given 1-based SNS index. An
// index of 0 is normalized to 1 (spec.md §4.6: unique steps carry no
// suffix, externally identical to index 1).
func Named(name itemstate.Name, index int) PathElement {
	if index <= 0 {
		index = 1
	}
	return PathElement{Kind: ElemNamed, Name: name, Index: index}
}

// Root is the root path element ("/").
var Root = PathElement{Kind: ElemRoot}

// Current is the "." element.
var Current = PathElement{Kind: ElemCurrent}

// Parent is the ".." element.
var Parent = PathElement{Kind: ElemParent}

// String renders a single element the way Path.String joins them.
func (e PathElement) String() string {
	switch e.Kind {
	case ElemRoot:
		return ""
	case ElemCurrent:
		return "."
	case ElemParent:
		return ".."
	default:
		if e.Index > 1 {
			return e.Name.Local + "[" + strconv.Itoa(e.Index) + "]"
		}
		return e.Name.Local
	}
}

// Path is an ordered, value-equal, totally-ordered sequence of
// PathElements.
type Path struct {
	Elements []PathElement
}

// RootPath is the canonical "/" path.
func RootPath() Path {
	return Path{Elements: []PathElement{Root}}
}

// IsRoot reports whether p is exactly the root path.
func (p Path) IsRoot() bool {
	return len(p.Elements) == 1 && p.Elements[0].Kind == ElemRoot
}

// IsAbsolute reports whether p begins with the root marker.
func (p Path) IsAbsolute() bool {
	return len(p.Elements) > 0 && p.Elements[0].Kind == ElemRoot
}

// Append returns a new Path with elem appended.
func (p Path) Append(elem PathElement) Path {
	out := make([]PathElement, len(p.Elements)+1)
	copy(out, p.Elements)
	out[len(p.Elements)] = elem
	return Path{Elements: out}
}

// Depth is the number of non-root elements (root path has depth 0).
func (p Path) Depth() int {
	if p.IsAbsolute() {
		return len(p.Elements) - 1
	}
	return len(p.Elements)
}

// Ancestor returns the ancestor path `degree` levels up (degree=0
// returns p itself; degree=1 returns the parent). ok is false if
// degree exceeds p's depth.
func (p Path) Ancestor(degree int) (Path, bool) {
	if degree < 0 {
		return Path{}, false
	}
	if degree == 0 {
		return p, true
	}
	n := len(p.Elements) - degree
	if n < 1 {
		return Path{}, false
	}
	out := make([]PathElement, n)
	copy(out, p.Elements[:n])
	return Path{Elements: out}, true
}

// Parent is shorthand for Ancestor(1).
func (p Path) Parent() (Path, bool) {
	return p.Ancestor(1)
}

// LastElement returns the final element of p and true, or the zero
// value and false if p is empty.
func (p Path) LastElement() (PathElement, bool) {
	if len(p.Elements) == 0 {
		return PathElement{}, false
	}
	return p.Elements[len(p.Elements)-1], true
}

// RelativeTo expresses p relative to ancestor: ancestor must be a
// prefix of p (element-wise equal), p itself included. Returns the
// trailing elements (empty when ancestor equals p) and true, or false
// if ancestor is not a prefix of p.
func (p Path) RelativeTo(ancestor Path) (Path, bool) {
	if len(ancestor.Elements) > len(p.Elements) {
		return Path{}, false
	}
	for i, e := range ancestor.Elements {
		if e != p.Elements[i] {
			return Path{}, false
		}
	}
	return Path{Elements: p.Elements[len(ancestor.Elements):]}, true
}

// Equal reports value equality: same element sequence.
func (p Path) Equal(other Path) bool {
	if len(p.Elements) != len(other.Elements) {
		return false
	}
	for i := range p.Elements {
		if p.Elements[i] != other.Elements[i] {
			return false
		}
	}
	return true
}

// Compare implements a total order over paths by comparing element
// sequences lexicographically (root < named(by namespace URI, local
// name, then index) < current < parent at each position, shorter
// prefix first).
func (p Path) Compare(other Path) int {
	n := len(p.Elements)
	if len(other.Elements) < n {
		n = len(other.Elements)
	}
	for i := 0; i < n; i++ {
		if c := compareElement(p.Elements[i], other.Elements[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(p.Elements) < len(other.Elements):
		return -1
	case len(p.Elements) > len(other.Elements):
		return 1
	default:
		return 0
	}
}

func compareElement(a, b PathElement) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	if a.Kind != ElemNamed {
		return 0
	}
	if c := strings.Compare(a.Name.URI, b.Name.URI); c != 0 {
		return c
	}
	if c := strings.Compare(a.Name.Local, b.Name.Local); c != 0 {
		return c
	}
	switch {
	case a.Index < b.Index:
		return -1
	case a.Index > b.Index:
		return 1
	default:
		return 0
	}
}

// String renders p the way a JCR path is conventionally displayed:
// "/" for the root, "/a/b[2]" for a named descent.
func (p Path) String() string {
	if len(p.Elements) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, e := range p.Elements {
		if e.Kind == ElemRoot {
			sb.WriteByte('/')
			continue
		}
		if i > 0 && p.Elements[i-1].Kind != ElemRoot {
			sb.WriteByte('/')
		}
		sb.WriteString(e.String())
	}
	return sb.String()
}
