package buildpipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"testing"

	"splittable/internal/bundle"
	"splittable/internal/compiler"
	"splittable/internal/directive"
	"splittable/internal/discovery"
	"splittable/internal/graph"
)

type fakeSource struct {
	records []discovery.Record
	err     error
	calls   int
}

func (f *fakeSource) Discover(_ context.Context, _ []string) ([]discovery.Record, error) {
	f.calls++
	return f.records, f.err
}

type recordingSink struct {
	events []Event
}

func (s *recordingSink) OnEvent(evt Event) { s.events = append(s.events, evt) }

func rec(id string, entry bool, deps ...string) discovery.Record {
	m := make(map[string]string, len(deps))
	for _, d := range deps {
		m["./"+d] = d
	}
	return discovery.Record{ID: id, IsEntry: entry, Deps: m}
}

func sampleSource() *fakeSource {
	return &fakeSource{records: []discovery.Record{
		rec("sample/lib/a.js", true, "sample/lib/c.js", "sample/lib/e.js"),
		rec("sample/lib/b.js", true, "sample/lib/c.js"),
		rec("sample/lib/c.js", false, "sample/lib/d.js"),
		rec("sample/lib/d.js", false),
		rec("sample/lib/e.js", false),
	}}
}

func TestPlanSampleLibrary(t *testing.T) {
	sink := &recordingSink{}
	req := &Request{
		Entries:  []string{"/proj/sample/lib/a.js", "/proj/sample/lib/b.js"},
		Root:     "/proj",
		Source:   sampleSource(),
		Progress: sink,
	}
	res, err := Plan(context.Background(), req)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if got := res.Bundles.Names(); !slices.Equal(got, []string{bundle.BaseName, "sample/lib/a.js", "sample/lib/b.js"}) {
		t.Fatalf("bundles = %v", got)
	}
	if got := res.Bundles.Base().Modules; !slices.Equal(got, []string{"sample/lib/d.js", "sample/lib/c.js"}) {
		t.Fatalf("base = %v", got)
	}
	var specs []string
	for _, d := range res.Directives {
		if d.Kind == directive.KindBundle {
			specs = append(specs, d.Spec())
		}
	}
	if want := []string{"_base:2", "sample-lib-a:2:_base", "sample-lib-b:1:_base"}; !slices.Equal(specs, want) {
		t.Fatalf("bundle specs = %v, want %v", specs, want)
	}
	for _, stage := range PlanStages {
		if !res.Timings.Has(stage) {
			t.Fatalf("missing timing for %s", stage)
		}
	}
	if res.Timings.Has(StageCompile) {
		t.Fatalf("Plan must not compile")
	}

	seen := map[string]Status{}
	for _, ev := range sink.events {
		seen[ev.Item+"/"+string(ev.Stage)] = ev.Status
	}
	for _, key := range []string{"sample/lib/a.js/emit", "sample/lib/b.js/emit", "_base/emit", "/emit"} {
		if seen[key] != StatusDone {
			t.Fatalf("progress %q = %q, want done (events: %+v)", key, seen[key], sink.events)
		}
	}
}

func TestPlanErrors(t *testing.T) {
	resolveErr := &discovery.ResolutionError{Reason: "resolver exited with status 1", Output: "Cannot find module './x'"}
	tests := []struct {
		name    string
		entries []string
		source  *fakeSource
		check   func(error) bool
	}{
		{
			name:   "no entries given",
			source: sampleSource(),
			check: func(err error) bool {
				var u *UsageError
				return errors.As(err, &u)
			},
		},
		{
			name:    "requested entry not discovered",
			entries: []string{"/proj/main.js"},
			source:  &fakeSource{records: []discovery.Record{rec("a.js", true)}},
			check: func(err error) bool {
				var r *discovery.ResolutionError
				return errors.As(err, &r) && r.Module == "main.js"
			},
		},
		{
			name:    "resolver failure",
			entries: []string{"a.js"},
			source:  &fakeSource{err: resolveErr},
			check: func(err error) bool {
				var r *discovery.ResolutionError
				return errors.As(err, &r) && r.Output == "Cannot find module './x'"
			},
		},
		{
			name:    "cycle",
			entries: []string{"a.js"},
			source:  &fakeSource{records: []discovery.Record{rec("a.js", true, "b.js"), rec("b.js", false, "a.js")}},
			check: func(err error) bool {
				var c *graph.CyclicDependencyError
				return errors.As(err, &c)
			},
		},
		{
			name:    "compiler name collision",
			entries: []string{"a/b.js", "a-b.js"},
			source:  &fakeSource{records: []discovery.Record{rec("a/b.js", true), rec("a-b.js", true)}},
			check: func(err error) bool {
				var r *discovery.ResolutionError
				return err != nil && !errors.As(err, &r)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Plan(context.Background(), &Request{Entries: tt.entries, Root: "/proj", Source: tt.source})
			if err == nil || !tt.check(err) {
				t.Fatalf("err = %v", err)
			}
			if res.Graph != nil || res.Ownership != nil || res.Bundles != nil || res.Directives != nil {
				t.Fatalf("partial result returned with error: %+v", res)
			}
		})
	}
}

func TestPlanUsesRequestedEntriesOnly(t *testing.T) {
	src := sampleSource()
	src.records = append(src.records, rec("sample/lib/unused.js", false))
	res, err := Plan(context.Background(), &Request{
		Entries: []string{"/proj/sample/lib/b.js"},
		Root:    "/proj",
		Source:  src,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if res.Bundles.Base() != nil {
		t.Fatalf("single requested entry must not produce a base bundle")
	}
	if got := res.Bundles.Names(); !slices.Equal(got, []string{"sample/lib/b.js"}) {
		t.Fatalf("bundles = %v", got)
	}
	var specs []string
	for _, d := range res.Directives {
		if d.Kind == directive.KindBundle {
			specs = append(specs, d.Spec())
		}
	}
	if !slices.Equal(specs, []string{"sample-lib-b:3"}) {
		t.Fatalf("bundle specs = %v", specs)
	}
}

func TestBuildReturnsNothingButOutputOnFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	bin := filepath.Join(t.TempDir(), "fake-closure")
	// #nosec G306 -- test script must be executable
	if err := os.WriteFile(bin, []byte("#!/bin/sh\necho broken >&2\nexit 2\n"), 0o700); err != nil {
		t.Fatal(err)
	}
	res, err := Build(context.Background(), &Request{
		Entries:  []string{"sample/lib/a.js"},
		Root:     t.TempDir(),
		Source:   sampleSource(),
		Compiler: &compiler.Runner{Command: []string{bin}},
	})
	var cErr *compiler.CompilationError
	if !errors.As(err, &cErr) {
		t.Fatalf("err = %v, want CompilationError", err)
	}
	if res.Graph != nil || res.Bundles != nil || res.Directives != nil {
		t.Fatalf("partial plan returned with error")
	}
	if res.Output != "broken\n" {
		t.Fatalf("Output = %q", res.Output)
	}
}

func TestPlanHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := sampleSource()
	_, err := Plan(ctx, &Request{Entries: []string{"a.js"}, Root: "/proj", Source: src})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if src.calls != 0 {
		t.Fatalf("discovery ran after cancellation")
	}
}

func TestBuildRunsCompiler(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	bin := filepath.Join(t.TempDir(), "fake-closure")
	// #nosec G306 -- test script must be executable
	if err := os.WriteFile(bin, []byte("#!/bin/sh\necho compiled \"$#\"\n"), 0o700); err != nil {
		t.Fatal(err)
	}
	req := &Request{
		Entries:  []string{"sample/lib/a.js", "sample/lib/b.js"},
		Root:     t.TempDir(),
		Source:   sampleSource(),
		Compiler: &compiler.Runner{Command: []string{bin}},
	}
	res, err := Build(context.Background(), req)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if want := "compiled " + strconv.Itoa(len(directive.Args(res.Directives))) + "\n"; res.Output != want {
		t.Fatalf("Output = %q, want %q", res.Output, want)
	}
	if !res.Timings.Has(StageCompile) {
		t.Fatalf("compile stage not timed")
	}
}

func TestBuildChecksRuntimeFirst(t *testing.T) {
	src := sampleSource()
	req := &Request{
		Entries:  []string{"a.js"},
		Source:   src,
		Compiler: &compiler.Runner{Command: []string{filepath.Join(t.TempDir(), "missing")}},
	}
	if _, err := Build(context.Background(), req); !errors.Is(err, compiler.ErrRuntimeMissing) {
		t.Fatalf("err = %v", err)
	}
	if src.calls != 0 {
		t.Fatalf("discovery ran without a compiler")
	}
}

func TestDisplayNames(t *testing.T) {
	got := DisplayNames([]string{"/proj/src/b.js", "/proj/src/a.js", "/proj/src/a.js", "/elsewhere/c.js"}, "/proj")
	want := []string{"/elsewhere/c.js", "src/a.js", "src/b.js"}
	if !slices.Equal(got, want) {
		t.Fatalf("DisplayNames = %v, want %v", got, want)
	}
}
