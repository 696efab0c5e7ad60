package discovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"slices"
	"testing"
)

func TestDecodeRows(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Record
	}{
		{
			name: "array",
			in: `[
				{"id": "/p/a.js", "file": "/p/a.js", "entry": true, "deps": {"./b": "/p/b.js", "fs": false}},
				{"id": 7, "file": "/p/b.js", "deps": {}}
			]`,
			want: []Record{
				{ID: "/p/a.js", IsEntry: true, Deps: map[string]string{"./b": "/p/b.js"}},
				{ID: "/p/b.js", Deps: map[string]string{}},
			},
		},
		{
			name: "stream",
			in:   `{"id": "a.js", "entry": true, "deps": {"./b": "b.js"}} {"id": "b.js"}`,
			want: []Record{
				{ID: "a.js", IsEntry: true, Deps: map[string]string{"./b": "b.js"}},
				{ID: "b.js", Deps: map[string]string{}},
			},
		},
		{
			name: "empty",
			in:   "  \n",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRows([]byte(tt.in))
			if err != nil {
				t.Fatalf("DecodeRows: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeRowsRejects(t *testing.T) {
	for _, in := range []string{`[{"id": 3}]`, `{"id": "a.js"`, `[1, 2]`} {
		if _, err := DecodeRows([]byte(in)); err == nil {
			t.Fatalf("DecodeRows(%s) succeeded", in)
		}
	}
}

func TestFiles(t *testing.T) {
	got := Files([]Record{{ID: "b.js"}, {ID: "a.js"}, {ID: "b.js"}})
	if !slices.Equal(got, []string{"a.js", "b.js"}) {
		t.Fatalf("Files = %v", got)
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deps.json")
	if err := os.WriteFile(path, []byte(`[{"file": "a.js", "entry": true}]`), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := FileSource{Path: path}.Discover(context.Background(), []string{"ignored.js"})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a.js" || !got[0].IsEntry {
		t.Fatalf("records = %+v", got)
	}

	_, err = FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}.Discover(context.Background(), nil)
	var rerr *ResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want ResolutionError", err)
	}
}

func fakeResolver(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "fake-resolver")
	// #nosec G306 -- test script must be executable
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o700); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCommandSource(t *testing.T) {
	// echo one entry row per argument after the fixed flag
	bin := fakeResolver(t, `shift; for e in "$@"; do printf '{"file":"%s","entry":true}\n' "$e"; done`)
	src := CommandSource{Command: []string{bin, "--deps"}}
	got, err := src.Discover(context.Background(), []string{"a.js", "b.js"})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a.js" || got[1].ID != "b.js" {
		t.Fatalf("records = %+v", got)
	}
}

func TestCommandSourceFailureKeepsStderr(t *testing.T) {
	bin := fakeResolver(t, `echo "Error: Cannot find module './nope'" >&2; exit 1`)
	_, err := CommandSource{Command: []string{bin}}.Discover(context.Background(), []string{"a.js"})
	var rerr *ResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want ResolutionError", err)
	}
	if rerr.Output != "Error: Cannot find module './nope'\n" {
		t.Fatalf("Output = %q", rerr.Output)
	}
	if rerr.Reason != "resolver exited with status 1" {
		t.Fatalf("Reason = %q", rerr.Reason)
	}
}

func TestCommandSourceMissingBinary(t *testing.T) {
	_, err := CommandSource{Command: []string{filepath.Join(t.TempDir(), "nope")}}.Discover(context.Background(), nil)
	var rerr *ResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want ResolutionError", err)
	}
}

type countingSource struct {
	records []Record
	calls   int
}

func (c *countingSource) Discover(context.Context, []string) ([]Record, error) {
	c.calls++
	return c.records, nil
}

func TestCachedSourceHitAndInvalidation(t *testing.T) {
	proj := t.TempDir()
	writeFile := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(proj, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	writeFile("a.js", "require('./b')")
	writeFile("b.js", "module.exports = 1")

	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	inner := &countingSource{records: []Record{
		{ID: "a.js", IsEntry: true, Deps: map[string]string{"./b": "b.js"}},
		{ID: "b.js", Deps: map[string]string{}},
	}}
	src := CachedSource{Inner: inner, Cache: cache, Dir: proj, Command: []string{"browserify", "--deps"}}
	ctx := context.Background()

	first, err := src.Discover(ctx, []string{"a.js"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := src.Discover(ctx, []string{"a.js"})
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Fatalf("inner called %d times, want 1", inner.calls)
	}
	if len(second) != len(first) || second[0].ID != "a.js" || !second[0].IsEntry || second[0].Deps["./b"] != "b.js" {
		t.Fatalf("cached records differ:\n%+v\n%+v", first, second)
	}

	writeFile("b.js", "module.exports = 2")
	if _, err := src.Discover(ctx, []string{"a.js"}); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Fatalf("edited file did not invalidate the cache")
	}

	// a different entry list is a different key
	if _, err := src.Discover(ctx, []string{"b.js"}); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 3 {
		t.Fatalf("entry list is not part of the key")
	}
}

func TestKeyIgnoresEntryOrder(t *testing.T) {
	cmd := []string{"browserify", "--deps"}
	if Key("/p", cmd, []string{"a", "b"}) != Key("/p", cmd, []string{"b", "a"}) {
		t.Fatalf("key depends on entry order")
	}
	if Key("/p", cmd, []string{"a"}) == Key("/q", cmd, []string{"a"}) {
		t.Fatalf("key ignores project dir")
	}
}

func TestDropAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	cache, err := NewCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := cache.Put(context.Background(), Key("", nil, nil), t.TempDir(), nil); err != nil {
		t.Fatal(err)
	}
	if err := cache.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("cache dir still present: %v", err)
	}
	// dropping an absent cache is fine
	if err := cache.DropAll(); err != nil {
		t.Fatalf("second DropAll: %v", err)
	}
}

func TestHashFilesReportsMissing(t *testing.T) {
	_, err := HashFiles(context.Background(), t.TempDir(), []string{"nope.js"}, 2)
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}
