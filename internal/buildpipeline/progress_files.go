package buildpipeline

import (
	"path/filepath"
	"sort"
	"strings"
)

// DisplayNames turns entry paths into display names relative
// to root, deduplicated and sorted.
func DisplayNames(entries []string, root string) []string {
	if len(entries) == 0 {
		return nil
	}
	base := strings.TrimSpace(root)
	if base != "" {
		if abs, err := filepath.Abs(base); err == nil {
			base = abs
		}
	}

	items := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if entry == "" {
			continue
		}
		p := filepath.Clean(entry)
		if base != "" {
			if abs, err := filepath.Abs(p); err == nil {
				p = abs
			}
			if rel, err := filepath.Rel(base, p); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
				p = rel
			}
		}
		p = filepath.ToSlash(p)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		items = append(items, p)
	}
	sort.Strings(items)
	return items
}
