package directive

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"splittable/internal/bundle"
	"splittable/internal/graph"
)

const (
	// Joiner replaces path separators in bundle names.
	Joiner = "-"

	// BaseWrapper declares shared globals and leaves the code unscoped so the
	// other bundles can see it.
	BaseWrapper = "self.global=self;%s"
	// DependentWrapper encloses a bundle and queues it on self._S, to be run
	// once the bundle file has loaded.
	DependentWrapper = "(self._S=self._S||[]).push((function(){%s}));"

	// SyntheticPrefix marks input paths that the compiler runner must
	// materialize before invoking the compiler.
	SyntheticPrefix = "$splittable/"
	trailName       = "_base-trail.js"
	trailContent    = "// splittable: keeps the shared bundle non-empty\n"

	outputPrefixFlag = "module_output_path_prefix"
)

// DefaultFlags are the compiler options used unless configuration overrides
// them.
var DefaultFlags = map[string]string{
	"compilation_level":         "ADVANCED",
	"create_source_map":         "%outname%.map",
	"language_in":               "ES6",
	"language_out":              "ES5",
	"new_type_inf":              "true",
	"process_common_js_modules": "true",
	"rewrite_polyfills":         "true",
}

// Options configures Emit.
type Options struct {
	// Flags override or extend DefaultFlags. An empty value removes a default.
	Flags map[string]string
	// OutputPrefix is where the compiler writes bundle files; "out/" if empty.
	OutputPrefix string
}

// SanitizeName derives the compiler-facing bundle name: the source
// extension is stripped and separators become Joiner. The base bundle is
// always "_base".
func SanitizeName(name string) string {
	if name == bundle.BaseName {
		return bundle.BaseName
	}
	name = strings.TrimSuffix(name, graph.SourceExt)
	return strings.ReplaceAll(name, "/", Joiner)
}

// Emit serializes a bundle set. The result is a pure function of its
// arguments: flags sorted by name, one package.json input per boundary, then
// each bundle (base first, the rest by name) as its inputs, a descriptor and
// a wrapper.
func Emit(set *bundle.Set, boundaries []string, opts Options) ([]Directive, error) {
	out := emitFlags(opts)

	sortedBoundaries := append([]string(nil), boundaries...)
	sort.Strings(sortedBoundaries)
	for _, b := range sortedBoundaries {
		out = append(out, Input(path.Join(b, "package.json")))
	}

	names := set.Names()
	hasBase := set.Base() != nil
	used := make(map[string]string, len(names))
	for _, name := range names {
		b := set.Bundles[name]
		sanitized := SanitizeName(name)
		if prev, clash := used[sanitized]; clash {
			return nil, fmt.Errorf("bundles %q and %q both map to output name %q", prev, name, sanitized)
		}
		used[sanitized] = name

		for _, m := range b.Modules {
			out = append(out, Input(m))
		}
		count := len(b.Modules)
		if b.IsBase && count == 0 && len(names) > 1 {
			out = append(out, Directive{
				Kind:      KindInput,
				Value:     SyntheticPrefix + trailName,
				Synthetic: &Synthetic{Name: trailName, Content: trailContent},
			})
			count++
		}

		desc := Directive{Kind: KindBundle, Name: sanitized, Count: count}
		wrapper := Directive{Kind: KindWrapper, Name: sanitized, Value: BaseWrapper}
		if !b.IsBase && hasBase {
			desc.DependsOn = bundle.BaseName
			wrapper.Value = DependentWrapper
		}
		out = append(out, desc, wrapper)
	}
	return out, nil
}

// Prefix returns the output path prefix with its trailing slash.
func (o Options) Prefix() string {
	prefix := o.OutputPrefix
	if prefix == "" {
		prefix = "out/"
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

func emitFlags(opts Options) []Directive {
	flags := make(map[string]string, len(DefaultFlags)+len(opts.Flags)+1)
	for k, v := range DefaultFlags {
		flags[k] = v
	}
	for k, v := range opts.Flags {
		if v == "" {
			delete(flags, k)
			continue
		}
		flags[k] = v
	}
	flags[outputPrefixFlag] = opts.Prefix()

	keys := make([]string, 0, len(flags))
	for k := range flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Directive, 0, len(keys))
	for _, k := range keys {
		out = append(out, Flag(k, flags[k]))
	}
	return out
}

// Synthetics returns the directives that need materializing.
func Synthetics(ds []Directive) []Directive {
	var out []Directive
	for _, d := range ds {
		if d.Synthetic != nil {
			out = append(out, d)
		}
	}
	return out
}
