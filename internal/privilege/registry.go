// Package privilege implements the privilege registry's validation
// core: aggregate privilege definitions checked for cycles, leaf-set
// equivalence, and disallowed built-in aggregation (spec.md §4.7).
package privilege

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/multierr"

	"github.com/corewell/noderepo/internal/rerr"
)

// Definition is one privilege as supplied to Load/RegisterDefinition:
// a name, whether it is abstract, and the names it aggregates (empty
// for a non-aggregate/leaf privilege).
type Definition struct {
	Name                   string
	Abstract               bool
	DeclaredAggregateNames []string
}

// Privilege is a fully resolved, validated privilege: its declaration
// plus the memoized transitive leaf set.
type Privilege struct {
	Name                   string
	Abstract               bool
	Builtin                bool
	DeclaredAggregateNames []string
	LeafSet                []string
}

// builtinNames are the reserved, pre-registered non-aggregate
// privileges every registry starts with (spec.md §4.7: "Built-in
// names are reserved").
var builtinNames = []string{
	"jcr:read",
	"jcr:addChildNodes",
	"jcr:removeChildNodes",
	"jcr:removeNode",
	"jcr:modifyProperties",
	"jcr:readAccessControl",
	"jcr:modifyAccessControl",
	"jcr:lockManagement",
	"jcr:versionManagement",
	"jcr:nodeTypeManagement",
	"jcr:retentionManagement",
	"jcr:lifecycleManagement",
}

// Registry holds validated privilege definitions keyed by name. All
// mutation happens under mu; RegisterDefinition rolls back on failure
// rather than leaving a partially-applied graph (spec.md §4.7).
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Privilege
}

// NewRegistry creates a registry pre-loaded with the built-in,
// non-aggregate privileges.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]*Privilege)}
	for _, name := range builtinNames {
		r.byName[name] = &Privilege{
			Name:    name,
			Builtin: true,
			LeafSet: []string{name},
		}
	}
	return r
}

// Get returns the resolved privilege registered under name.
func (r *Registry) Get(name string) (*Privilege, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	return p, ok
}

// Names returns every registered privilege name, built-in and custom.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Load bulk-registers defs against the registry's current state.
// Validation runs in stages: a duplicate name is reported alone and
// ends validation; unknown aggregate references are collected
// together; a cycle ends validation before leaf sets are computed;
// equivalence and built-in aggregation failures are then collected
// together via multierr. On any failure the registry is left unchanged.
func (r *Registry) Load(defs []Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	candidate := cloneMap(r.byName)
	for _, d := range defs {
		if _, exists := candidate[d.Name]; exists {
			return &rerr.DuplicateName{Name: d.Name}
		}
		candidate[d.Name] = &Privilege{
			Name:                   d.Name,
			Abstract:               d.Abstract,
			DeclaredAggregateNames: d.DeclaredAggregateNames,
		}
	}

	if err := validateReferences(candidate); err != nil {
		return err
	}

	var errs error
	if err := detectCycles(candidate); err != nil {
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		return errs
	}

	leafSets, err := computeLeafSets(candidate)
	if err != nil {
		return err
	}
	for name, p := range candidate {
		p.LeafSet = leafSets[name]
	}

	if err := detectEquivalence(candidate); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := detectUnsupportedAggregation(candidate); err != nil {
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		return errs
	}

	r.byName = candidate
	return nil
}

// RegisterDefinition registers a single privilege, re-running full
// validation over the resulting graph and rolling back to the prior
// state on any failure.
func (r *Registry) RegisterDefinition(name string, abstract bool, aggregate []string) error {
	return r.Load([]Definition{{Name: name, Abstract: abstract, DeclaredAggregateNames: aggregate}})
}

func cloneMap(m map[string]*Privilege) map[string]*Privilege {
	out := make(map[string]*Privilege, len(m))
	for k, v := range m {
		cp := *v
		out[k] = &cp
	}
	return out
}

// validateReferences checks that every declared aggregate name refers
// to a privilege present in candidate (built-in or newly declared).
func validateReferences(candidate map[string]*Privilege) error {
	var errs error
	for name, p := range candidate {
		for _, ref := range p.DeclaredAggregateNames {
			if _, ok := candidate[ref]; !ok {
				errs = multierr.Append(errs, &rerr.InvalidName{
					Reason: fmt.Sprintf("%s declares unknown aggregate %s", name, ref),
				})
			}
		}
	}
	return errs
}

// colorState is the three-color DFS marker: unvisited, in-progress
// (gray), and finished (black).
type colorState uint8

const (
	colorWhite colorState = iota
	colorGray
	colorBlack
)

// detectCycles runs a three-color DFS over the name -> declaredAggregate
// graph; a gray-to-gray edge is a cycle (spec.md §4.7).
func detectCycles(candidate map[string]*Privilege) error {
	colors := make(map[string]colorState, len(candidate))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch colors[name] {
		case colorBlack:
			return nil
		case colorGray:
			return &rerr.CyclicDefinitions{Path: append(append([]string{}, path...), name)}
		}
		colors[name] = colorGray
		path = append(path, name)
		for _, ref := range candidate[name].DeclaredAggregateNames {
			if err := visit(ref, path); err != nil {
				return err
			}
		}
		colors[name] = colorBlack
		return nil
	}

	names := make([]string, 0, len(candidate))
	for name := range candidate {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if colors[name] == colorWhite {
			if err := visit(name, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// computeLeafSets computes, for every privilege, the set of
// non-aggregate names transitively reachable, memoized per name. The
// graph is assumed acyclic (detectCycles must run first).
func computeLeafSets(candidate map[string]*Privilege) (map[string][]string, error) {
	memo := make(map[string][]string, len(candidate))

	var resolve func(name string) []string
	resolve = func(name string) []string {
		if leaves, ok := memo[name]; ok {
			return leaves
		}
		p := candidate[name]
		if len(p.DeclaredAggregateNames) == 0 {
			memo[name] = []string{name}
			return memo[name]
		}
		seen := make(map[string]struct{})
		for _, ref := range p.DeclaredAggregateNames {
			for _, leaf := range resolve(ref) {
				seen[leaf] = struct{}{}
			}
		}
		leaves := make([]string, 0, len(seen))
		for leaf := range seen {
			leaves = append(leaves, leaf)
		}
		sort.Strings(leaves)
		memo[name] = leaves
		return leaves
	}

	for name := range candidate {
		resolve(name)
	}
	return memo, nil
}

// detectEquivalence fails when two distinct privileges share the same
// non-empty leaf set, built-ins included (spec.md §4.7).
func detectEquivalence(candidate map[string]*Privilege) error {
	bySignature := make(map[string]string)

	names := make([]string, 0, len(candidate))
	for name := range candidate {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs error
	for _, name := range names {
		p := candidate[name]
		if len(p.LeafSet) == 0 {
			continue
		}
		sig := strings.Join(p.LeafSet, "\x00")
		if other, ok := bySignature[sig]; ok && other != name {
			errs = multierr.Append(errs, &rerr.EquivalentDefinitions{A: other, B: name})
			continue
		}
		bySignature[sig] = name
	}
	return errs
}

// detectUnsupportedAggregation fails any newly-aggregating privilege
// whose transitive leaf set includes a built-in (spec.md §4.7:
// "Aggregates that transitively include any built-in are rejected").
func detectUnsupportedAggregation(candidate map[string]*Privilege) error {
	var errs error
	for name, p := range candidate {
		if len(p.DeclaredAggregateNames) == 0 {
			continue
		}
		for _, leaf := range p.LeafSet {
			if leafPriv, ok := candidate[leaf]; ok && leafPriv.Builtin {
				errs = multierr.Append(errs, &rerr.AggregationNotSupported{Name: name, BuiltIn: leaf})
				break
			}
		}
	}
	return errs
}
