package bundle

import (
	"sort"

	"splittable/internal/graph"
)

// BaseName is the name of the bundle holding modules shared by two or more
// entries.
const BaseName = "_base"

// Bundle is one compiler-facing output unit.
type Bundle struct {
	Name    string   `json:"name"`
	Modules []string `json:"modules"` // dependencies before dependents
	IsBase  bool     `json:"-"`
}

// Set holds every bundle of one build.
type Set struct {
	Bundles map[string]*Bundle
	owner   map[string]string
}

// Partition assigns every module of g to exactly one bundle, walking
// g.Sorted so that a module's same-bundle dependencies are appended first.
// With exactly one entry the (necessarily empty) base bundle is dropped.
func Partition(g *graph.Graph, own Ownership) (*Set, error) {
	set := &Set{
		Bundles: make(map[string]*Bundle, len(g.Entries)+1),
		owner:   make(map[string]string, len(g.Sorted)),
	}
	set.Bundles[BaseName] = &Bundle{Name: BaseName, Modules: []string{}, IsBase: true}
	for _, e := range g.Entries {
		set.Bundles[e] = &Bundle{Name: e, Modules: []string{}}
	}

	for _, m := range g.Sorted {
		owners := own[m]
		var dest string
		switch len(owners) {
		case 0:
			return nil, &InternalConsistencyError{Module: m, Detail: "module has no owning entry"}
		case 1:
			dest = owners.Sorted()[0]
		default:
			dest = BaseName
		}
		b, ok := set.Bundles[dest]
		if !ok {
			return nil, &InternalConsistencyError{Module: m, Detail: "owner " + dest + " is not an entry"}
		}
		b.Modules = append(b.Modules, m)
		set.owner[m] = dest
	}

	// an entry imported by another entry is shared and leaves its own bundle empty
	for _, e := range g.Entries {
		if len(set.Bundles[e].Modules) == 0 {
			delete(set.Bundles, e)
		}
	}
	if len(g.Entries) == 1 {
		delete(set.Bundles, BaseName)
	}
	return set, nil
}

// Names returns bundle names with the base bundle first and the rest sorted.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.Bundles))
	for name := range s.Bundles {
		if name == BaseName {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if _, ok := s.Bundles[BaseName]; ok {
		names = append([]string{BaseName}, names...)
	}
	return names
}

// Base returns the base bundle, or nil when it was dropped.
func (s *Set) Base() *Bundle { return s.Bundles[BaseName] }

// BundleOf returns the name of the bundle holding module id.
func (s *Set) BundleOf(id string) (string, bool) {
	name, ok := s.owner[id]
	return name, ok
}

// Len returns the number of bundles.
func (s *Set) Len() int { return len(s.Bundles) }
