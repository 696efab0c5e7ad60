package graph

import (
	"errors"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SourceExt is appended to ids that do not end in a terminal extension.
const SourceExt = ".js"

// TerminalExtensions are kept as-is by NormalizeExtension. Everything else,
// including .jsx or .ts, is treated as an incomplete id.
var TerminalExtensions = []string{".js", ".mjs", ".json"}

var (
	errEmptyID     = errors.New("empty module id")
	errOutsideRoot = errors.New("module lies outside the project root")
)

// CanonicalID turns a raw resolver id into a project-relative, forward-slash
// path with a terminal extension. root must be absolute when raw may be.
func CanonicalID(root, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errEmptyID
	}
	p := strings.ReplaceAll(raw, "\\", "/")
	if path.IsAbs(p) || filepath.IsAbs(raw) {
		rel, err := filepath.Rel(root, filepath.FromSlash(p))
		if err != nil {
			return "", errOutsideRoot
		}
		p = filepath.ToSlash(rel)
	}
	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", errOutsideRoot
	}
	p = norm.NFC.String(p)
	return NormalizeExtension(p), nil
}

// NormalizeExtension appends SourceExt unless id already ends in one of
// TerminalExtensions.
func NormalizeExtension(id string) string {
	if slices.Contains(TerminalExtensions, path.Ext(id)) {
		return id
	}
	return id + SourceExt
}

// IsBareSpecifier reports whether spec names a package rather than a path.
func IsBareSpecifier(spec string) bool {
	switch {
	case spec == "", spec == ".", spec == "..":
		return false
	case strings.HasPrefix(spec, "./"), strings.HasPrefix(spec, "../"), strings.HasPrefix(spec, "/"):
		return false
	}
	return true
}

// PackageBoundary returns the package root (the directory holding the
// package manifest) for a canonical id inside a node_modules tree. The last
// node_modules segment wins so nested installs resolve to the inner package.
func PackageBoundary(id string) (string, bool) {
	parts := strings.Split(id, "/")
	for k := len(parts) - 2; k >= 0; k-- {
		if parts[k] != "node_modules" {
			continue
		}
		end := k + 2
		if strings.HasPrefix(parts[k+1], "@") {
			end = k + 3
		}
		// the boundary must be a directory with the module somewhere below it
		if end >= len(parts) {
			return "", false
		}
		return strings.Join(parts[:end], "/"), true
	}
	return "", false
}
