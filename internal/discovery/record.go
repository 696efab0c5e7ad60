// Package discovery collects module records from an external resolver.
//
// The resolver is expected to emit one JSON row per module of the transitive
// closure of the requested entries, in the shape browserify prints with
// --deps: {"id": ..., "file": ..., "entry": bool, "deps": {specifier: path}}.
// Discovery never interprets module source; it only materializes rows into
// an immutable []Record that the graph stage consumes in one piece.
package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Record is one module as reported by the resolver. IDs and resolved paths
// are raw, not yet canonicalized.
type Record struct {
	ID      string            `msgpack:"id"`
	IsEntry bool              `msgpack:"entry"`
	Deps    map[string]string `msgpack:"deps"` // specifier -> resolved path
}

// Source produces the complete record set for a list of entry modules.
type Source interface {
	Discover(ctx context.Context, entries []string) ([]Record, error)
}

type row struct {
	ID    json.RawMessage            `json:"id"`
	File  string                     `json:"file"`
	Entry bool                       `json:"entry"`
	Deps  map[string]json.RawMessage `json:"deps"`
}

// DecodeRows parses resolver output: either a JSON array of rows or a stream
// of concatenated row objects. Deps whose value is not a string (browserify
// reports `false` for modules excluded from the browser build) are dropped.
func DecodeRows(data []byte) ([]Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	var rows []row
	if data[0] == '[' {
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("decode resolver rows: %w", err)
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		for dec.More() {
			var r row
			if err := dec.Decode(&r); err != nil {
				return nil, fmt.Errorf("decode resolver row %d: %w", len(rows), err)
			}
			rows = append(rows, r)
		}
	}

	records := make([]Record, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].record()
		if err != nil {
			return nil, fmt.Errorf("resolver row %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *row) record() (Record, error) {
	id := r.File
	if id == "" && len(r.ID) > 0 {
		var s string
		if err := json.Unmarshal(r.ID, &s); err == nil {
			id = s
		}
	}
	if id == "" {
		return Record{}, fmt.Errorf("row has neither a file nor a string id")
	}
	rec := Record{ID: id, IsEntry: r.Entry, Deps: make(map[string]string, len(r.Deps))}
	for spec, raw := range r.Deps {
		var resolved string
		if err := json.Unmarshal(raw, &resolved); err != nil || resolved == "" {
			continue
		}
		rec.Deps[spec] = resolved
	}
	return rec, nil
}

// Files returns the raw ids of all records, sorted and deduplicated.
func Files(records []Record) []string {
	seen := make(map[string]struct{}, len(records))
	out := make([]string, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		seen[rec.ID] = struct{}{}
		out = append(out, rec.ID)
	}
	sort.Strings(out)
	return out
}
