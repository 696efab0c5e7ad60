package graph

import (
	"fmt"
	"sort"

	"fortio.org/safecast"
)

// ModuleID is a dense index into ModuleIndex. IDs are assigned in ascending
// canonical-id order, so comparing IDs compares names.
type ModuleID uint32

// ModuleIndex maps canonical ids to dense ids and back.
type ModuleIndex struct {
	NameToID map[string]ModuleID
	IDToName []string
}

// buildIndex collects unique names, sorts them and hands out IDs in order.
func buildIndex(names []string) (ModuleIndex, error) {
	uniq := make(map[string]struct{}, len(names))
	for _, name := range names {
		uniq[name] = struct{}{}
	}
	sorted := make([]string, 0, len(uniq))
	for name := range uniq {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	nameToID := make(map[string]ModuleID, len(sorted))
	for i, name := range sorted {
		id, err := safecast.Conv[ModuleID](i)
		if err != nil {
			return ModuleIndex{}, fmt.Errorf("module id overflow: %w", err)
		}
		nameToID[name] = id
	}
	return ModuleIndex{NameToID: nameToID, IDToName: sorted}, nil
}

// Len returns the number of indexed modules.
func (idx ModuleIndex) Len() int { return len(idx.IDToName) }

// Name returns the canonical id for a dense id.
func (idx ModuleIndex) Name(id ModuleID) string { return idx.IDToName[int(id)] }

// IDs returns every dense id in ascending order.
func (idx ModuleIndex) IDs() []ModuleID {
	ids := make([]ModuleID, 0, len(idx.IDToName))
	for _, name := range idx.IDToName {
		ids = append(ids, idx.NameToID[name])
	}
	return ids
}
