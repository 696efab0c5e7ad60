// Package bundle decides which output bundle every module of a graph goes to.
//
// Ownership first: every module learns the set of entries that transitively
// require it. Partitioning then places a module into its sole owner's bundle,
// or into the shared base bundle when two or more entries need it.
package bundle

import (
	"fmt"
	"sort"

	"splittable/internal/graph"
)

// EntrySet is a set of entry module ids.
type EntrySet map[string]struct{}

// Add inserts id.
func (s EntrySet) Add(id string) { s[id] = struct{}{} }

// Has reports membership.
func (s EntrySet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s EntrySet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Ownership maps a module id to the entries that transitively require it.
type Ownership map[string]EntrySet

// InternalConsistencyError is a violated graph invariant. It indicates a bug
// in an earlier stage, never bad user input.
type InternalConsistencyError struct {
	Module string
	Detail string
}

func (e *InternalConsistencyError) Error() string {
	return fmt.Sprintf("internal consistency error at %q: %s", e.Module, e.Detail)
}

// Propagate computes ownership in one pass over the reverse of g.Sorted, so
// a module is visited only after every module that depends on it. g must be
// sorted.
func Propagate(g *graph.Graph) (Ownership, error) {
	if len(g.Sorted) != g.Len() {
		return nil, &InternalConsistencyError{Detail: fmt.Sprintf("graph order covers %d of %d modules", len(g.Sorted), g.Len())}
	}
	own := make(Ownership, g.Len())
	for _, id := range g.Sorted {
		own[id] = EntrySet{}
	}
	for _, e := range g.Entries {
		own[e].Add(e)
	}

	for i := len(g.Sorted) - 1; i >= 0; i-- {
		m := g.Sorted[i]
		owners := own[m]
		if len(owners) == 0 {
			continue
		}
		for _, d := range g.Deps(m) {
			target := own[d]
			for e := range owners {
				target.Add(e)
			}
		}
	}

	for _, id := range g.Sorted {
		if len(own[id]) == 0 {
			return nil, &InternalConsistencyError{Module: id, Detail: "not reachable from any entry"}
		}
	}
	return own, nil
}
