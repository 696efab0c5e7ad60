package compiler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"splittable/internal/directive"
)

// fakeCompiler writes a shell script standing in for the real compiler.
func fakeCompiler(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "fake-closure")
	script := "#!/bin/sh\n" + body + "\n"
	// #nosec G306 -- test script must be executable
	if err := os.WriteFile(path, []byte(script), 0o700); err != nil {
		t.Fatal(err)
	}
	return path
}

func trailDirectives() []directive.Directive {
	return []directive.Directive{
		directive.Flag("language_out", "ES5"),
		{
			Kind:      directive.KindInput,
			Value:     directive.SyntheticPrefix + "_base-trail.js",
			Synthetic: &directive.Synthetic{Name: "_base-trail.js", Content: "// trail\n"},
		},
		{Kind: directive.KindBundle, Name: "_base", Count: 1},
	}
}

func TestRunPassesArgvAndMaterializesSynthetics(t *testing.T) {
	log := filepath.Join(t.TempDir(), "argv")
	// record argv, then prove the synthetic input exists while we run
	bin := fakeCompiler(t, `for a in "$@"; do echo "$a"; done > `+log+`
cat "$4"`)
	r := &Runner{Command: []string{bin}}

	out, err := r.Run(context.Background(), trailDirectives())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "// trail\n" {
		t.Fatalf("output = %q", out)
	}
	data, err := os.ReadFile(log)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 6 || lines[0] != "--language_out" || lines[2] != "--js" || lines[4] != "--module" || lines[5] != "_base:1" {
		t.Fatalf("argv = %q", lines)
	}
	if strings.HasPrefix(lines[3], directive.SyntheticPrefix) {
		t.Fatalf("synthetic path was not rewritten: %q", lines[3])
	}
	if _, err := os.Stat(lines[3]); !os.IsNotExist(err) {
		t.Fatalf("scratch file %q should be removed after Run, stat err = %v", lines[3], err)
	}
}

func TestRunCompilationError(t *testing.T) {
	bin := fakeCompiler(t, `echo "ERROR - undefined variable foo" >&2; exit 3`)
	r := &Runner{Command: []string{bin}}

	_, err := r.Run(context.Background(), trailDirectives())
	var cerr *CompilationError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want CompilationError", err)
	}
	if cerr.Output != "ERROR - undefined variable foo\n" {
		t.Fatalf("Output = %q", cerr.Output)
	}
}

func TestEnsureRuntimeMissing(t *testing.T) {
	r := &Runner{Command: []string{filepath.Join(t.TempDir(), "no-such-compiler")}}
	if err := r.EnsureRuntime(); !errors.Is(err, ErrRuntimeMissing) {
		t.Fatalf("err = %v, want ErrRuntimeMissing", err)
	}
	if _, err := r.Run(context.Background(), nil); !errors.Is(err, ErrRuntimeMissing) {
		t.Fatalf("Run err = %v, want ErrRuntimeMissing", err)
	}
}

func TestRunUsesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	bin := fakeCompiler(t, `pwd`)
	r := &Runner{Command: []string{bin}, Dir: dir}
	out, err := r.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, _ := filepath.EvalSymlinks(strings.TrimSpace(out))
	want, _ := filepath.EvalSymlinks(dir)
	if got != want {
		t.Fatalf("pwd = %q, want %q", got, want)
	}
}
