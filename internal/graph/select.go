package graph

import "splittable/internal/discovery"

// SelectEntries narrows records to the build requested by entries: only the
// requested modules are marked as entries, whatever the resolver reported,
// and records no requested entry can reach are dropped. A requested entry
// without a record is a ResolutionError.
func SelectEntries(root string, records []discovery.Record, entries []string) ([]discovery.Record, error) {
	byID := make(map[string][]int, len(records))
	for i, rec := range records {
		// ids that do not canonicalize are kept for Build to report
		id, err := CanonicalID(root, rec.ID)
		if err != nil {
			continue
		}
		byID[id] = append(byID[id], i)
	}

	requested := make(map[string]struct{}, len(entries))
	queue := make([]string, 0, len(entries))
	for _, e := range entries {
		id, err := CanonicalID(root, e)
		if err != nil {
			return nil, &discovery.ResolutionError{Module: e, Reason: "requested entry", Err: err}
		}
		if _, ok := byID[id]; !ok {
			return nil, &discovery.ResolutionError{
				Module: id,
				Reason: "requested entry was not reported by discovery",
			}
		}
		if _, dup := requested[id]; dup {
			continue
		}
		requested[id] = struct{}{}
		queue = append(queue, id)
	}

	keep := make([]bool, len(records))
	for i, rec := range records {
		if _, err := CanonicalID(root, rec.ID); err != nil {
			keep[i] = true
		}
	}
	reached := make(map[string]struct{}, len(byID))
	for _, id := range queue {
		reached[id] = struct{}{}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, i := range byID[id] {
			keep[i] = true
			for _, raw := range records[i].Deps {
				dep, err := CanonicalID(root, raw)
				if err != nil {
					continue
				}
				if _, seen := reached[dep]; seen {
					continue
				}
				reached[dep] = struct{}{}
				queue = append(queue, dep)
			}
		}
	}

	out := make([]discovery.Record, 0, len(reached))
	for i, rec := range records {
		if !keep[i] {
			continue
		}
		id, err := CanonicalID(root, rec.ID)
		if err == nil {
			_, rec.IsEntry = requested[id]
		}
		out = append(out, rec)
	}
	return out, nil
}
