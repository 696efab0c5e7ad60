package graph

import (
	"container/heap"
	"fmt"
	"strings"
)

// CyclicDependencyError reports a circular dependency chain. Cycle lists the
// members in dependency direction with the first member repeated at the end.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("circular dependency: %s", strings.Join(e.Cycle, " -> "))
}

// Member returns one module on the cycle.
func (e *CyclicDependencyError) Member() string {
	if len(e.Cycle) == 0 {
		return ""
	}
	return e.Cycle[0]
}

// idHeap is a min-heap of module ids; smallest id is smallest canonical name.
type idHeap []ModuleID

func (h idHeap) Len() int           { return len(h) }
func (h idHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x any)        { *h = append(*h, x.(ModuleID)) }
func (h *idHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Sort computes g.Sorted: every module after all of its dependencies, with
// ties among ready modules broken by canonical id ascending. A cycle leaves
// g.Sorted unset and returns *CyclicDependencyError.
func (g *Graph) Sort() error {
	order, err := toposort(g.index, g.deps)
	if err != nil {
		return err
	}
	g.Sorted = order
	return nil
}

func toposort(idx ModuleIndex, deps [][]ModuleID) ([]string, error) {
	n := idx.Len()
	pending := make([]int, n)
	dependents := make([][]ModuleID, n)
	ids := idx.IDs()
	for _, from := range ids {
		edges := deps[int(from)]
		pending[int(from)] = len(edges)
		for _, to := range edges {
			dependents[int(to)] = append(dependents[int(to)], from)
		}
	}

	ready := make(idHeap, 0, n)
	for _, id := range ids {
		if pending[int(id)] == 0 {
			ready = append(ready, id)
		}
	}
	heap.Init(&ready)

	order := make([]string, 0, n)
	for ready.Len() > 0 {
		id := heap.Pop(&ready).(ModuleID)
		order = append(order, idx.Name(id))
		for _, dependent := range dependents[int(id)] {
			pending[int(dependent)]--
			if pending[int(dependent)] == 0 {
				heap.Push(&ready, dependent)
			}
		}
	}

	if len(order) != n {
		return nil, &CyclicDependencyError{Cycle: findCycle(idx, deps, pending)}
	}
	return order, nil
}

// findCycle walks from the smallest unfinished module along unfinished
// dependencies. Every unfinished module has at least one unfinished
// dependency, so the walk must revisit a module; the loop from that module
// on is the cycle.
func findCycle(idx ModuleIndex, deps [][]ModuleID, pending []int) []string {
	var cur ModuleID
	started := false
	for _, id := range idx.IDs() {
		if pending[int(id)] > 0 {
			cur, started = id, true
			break
		}
	}
	if !started {
		return nil
	}

	pos := make(map[ModuleID]int)
	var path []ModuleID
	for {
		if at, seen := pos[cur]; seen {
			cycle := make([]string, 0, len(path)-at+1)
			for _, id := range path[at:] {
				cycle = append(cycle, idx.Name(id))
			}
			return append(cycle, idx.Name(cur))
		}
		pos[cur] = len(path)
		path = append(path, cur)
		var next ModuleID
		found := false
		for _, dep := range deps[int(cur)] {
			if pending[int(dep)] > 0 {
				next, found = dep, true
				break
			}
		}
		if !found {
			return []string{idx.Name(cur)}
		}
		cur = next
	}
}
