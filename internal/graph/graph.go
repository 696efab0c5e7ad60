// Package graph builds the canonical module graph of one build and orders it
// so that every module comes after all of its dependencies.
package graph

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"splittable/internal/discovery"
)

// ErrNoEntries is returned when the discovered records mark no entry module.
var ErrNoEntries = errors.New("no entry modules")

// Module is one canonical node of the graph.
type Module struct {
	ID      string
	Deps    []string // canonical ids, sorted, no duplicates
	IsEntry bool
}

// Graph is the closed module set of one build.
type Graph struct {
	Modules    map[string]*Module
	Entries    []string // sorted
	Boundaries []string // package roots of vendored bare dependencies, sorted
	Sorted     []string // filled by Sort: dependencies before dependents

	index ModuleIndex
	deps  [][]ModuleID // deps[m] = modules m depends on
}

// Build canonicalizes discovery records into a closed graph. root is the
// absolute project root that canonical ids are relative to. Any inconsistency
// in the records fails the whole build; no partial graph is returned.
func Build(root string, records []discovery.Record) (*Graph, error) {
	g := &Graph{Modules: make(map[string]*Module, len(records))}
	boundaries := make(map[string]struct{})

	for _, rec := range records {
		id, err := CanonicalID(root, rec.ID)
		if err != nil {
			return nil, &discovery.ResolutionError{Module: rec.ID, Err: err}
		}
		mod, err := canonicalModule(root, id, rec, boundaries)
		if err != nil {
			return nil, err
		}
		if prev, ok := g.Modules[id]; ok {
			if prev.IsEntry != mod.IsEntry || !slices.Equal(prev.Deps, mod.Deps) {
				return nil, &discovery.ResolutionError{
					Module: id,
					Reason: "reported twice with different dependencies",
				}
			}
			continue
		}
		g.Modules[id] = mod
	}

	names := make([]string, 0, len(g.Modules))
	for id := range g.Modules {
		names = append(names, id)
	}
	sort.Strings(names)
	for _, id := range names {
		mod := g.Modules[id]
		if mod.IsEntry {
			g.Entries = append(g.Entries, id)
		}
		for _, dep := range mod.Deps {
			if _, ok := g.Modules[dep]; !ok {
				return nil, &discovery.ResolutionError{
					Module: id,
					Reason: fmt.Sprintf("depends on %q which discovery did not report", dep),
				}
			}
		}
	}
	if len(g.Entries) == 0 {
		return nil, ErrNoEntries
	}

	g.Boundaries = make([]string, 0, len(boundaries))
	for b := range boundaries {
		g.Boundaries = append(g.Boundaries, b)
	}
	sort.Strings(g.Boundaries)

	idx, err := buildIndex(names)
	if err != nil {
		return nil, err
	}
	g.index = idx
	g.deps = make([][]ModuleID, idx.Len())
	for id, mod := range g.Modules {
		from := idx.NameToID[id]
		edges := make([]ModuleID, 0, len(mod.Deps))
		for _, dep := range mod.Deps {
			edges = append(edges, idx.NameToID[dep])
		}
		g.deps[int(from)] = edges
	}
	return g, nil
}

func canonicalModule(root, id string, rec discovery.Record, boundaries map[string]struct{}) (*Module, error) {
	specs := make([]string, 0, len(rec.Deps))
	for spec := range rec.Deps {
		specs = append(specs, spec)
	}
	sort.Strings(specs)

	seen := make(map[string]struct{}, len(specs))
	deps := make([]string, 0, len(specs))
	for _, spec := range specs {
		dep, err := CanonicalID(root, rec.Deps[spec])
		if err != nil {
			return nil, &discovery.ResolutionError{
				Module: id,
				Reason: fmt.Sprintf("dependency %q -> %q", spec, rec.Deps[spec]),
				Err:    err,
			}
		}
		if IsBareSpecifier(spec) {
			if b, ok := PackageBoundary(dep); ok {
				boundaries[b] = struct{}{}
			}
		}
		if _, dup := seen[dep]; dup {
			continue
		}
		seen[dep] = struct{}{}
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	return &Module{ID: id, Deps: deps, IsEntry: rec.IsEntry}, nil
}

// Len returns the number of modules.
func (g *Graph) Len() int { return len(g.Modules) }

// IsEntry reports whether id is an entry module.
func (g *Graph) IsEntry(id string) bool {
	mod, ok := g.Modules[id]
	return ok && mod.IsEntry
}

// Deps returns the canonical dependencies of id.
func (g *Graph) Deps(id string) []string {
	if mod, ok := g.Modules[id]; ok {
		return mod.Deps
	}
	return nil
}
