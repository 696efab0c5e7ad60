// Package compiler runs the external whole-program compiler over emitted
// directives.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"splittable/internal/directive"
	"splittable/internal/trace"
)

// ErrRuntimeMissing is returned when the compiler command cannot be found.
var ErrRuntimeMissing = errors.New("compiler runtime not found")

// DefaultCommand launches the Closure Compiler jar from the working directory.
var DefaultCommand = []string{"java", "-jar", "closure-compiler.jar"}

// CompilationError reports a compiler run that exited non-zero. Output is
// the compiler's combined stdout and stderr, unmodified.
type CompilationError struct {
	Output string
	Err    error
}

func (e *CompilationError) Error() string {
	msg := strings.TrimSpace(e.Output)
	if msg == "" {
		return fmt.Sprintf("compilation failed: %v", e.Err)
	}
	return "compilation failed:\n" + msg
}

func (e *CompilationError) Unwrap() error { return e.Err }

// Runner invokes the compiler.
type Runner struct {
	Command []string // argv prefix; DefaultCommand when empty
	Dir     string   // working directory; input paths are relative to it
}

func (r *Runner) command() []string {
	if r == nil || len(r.Command) == 0 {
		return DefaultCommand
	}
	return r.Command
}

// EnsureRuntime checks that the compiler executable is on PATH.
func (r *Runner) EnsureRuntime() error {
	name := r.command()[0]
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%w: %s (install it or set [compiler] command in splittable.toml)", ErrRuntimeMissing, name)
	}
	return nil
}

// Run materializes synthetic inputs into a scratch directory, runs the
// compiler with the rendered directives and returns its combined output.
// The scratch directory is removed before Run returns.
func (r *Runner) Run(ctx context.Context, ds []directive.Directive) (string, error) {
	if err := r.EnsureRuntime(); err != nil {
		return "", err
	}
	tmpDir, err := os.MkdirTemp("", "splittable-")
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	args, err := materialize(tmpDir, ds)
	if err != nil {
		return "", err
	}

	cmdline := r.command()
	argv := append(append([]string(nil), cmdline[1:]...), args...)
	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopeStage, "compiler", trace.ParentSpan(ctx))
	span.WithExtra("args", fmt.Sprint(len(argv)))

	// #nosec G204 -- the command comes from the project configuration
	cmd := exec.CommandContext(ctx, cmdline[0], argv...)
	cmd.Dir = r.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		span.End("failed")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return string(out), ctxErr
		}
		return string(out), &CompilationError{Output: string(out), Err: err}
	}
	span.End("ok")
	return string(out), nil
}

// materialize writes every synthetic input below dir and renders the argv
// with those inputs pointing at the written files.
func materialize(dir string, ds []directive.Directive) ([]string, error) {
	rendered := make([]directive.Directive, len(ds))
	copy(rendered, ds)
	for i := range rendered {
		syn := rendered[i].Synthetic
		if syn == nil {
			continue
		}
		p := filepath.Join(dir, filepath.FromSlash(syn.Name))
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			return nil, err
		}
		if err := os.WriteFile(p, []byte(syn.Content), 0o600); err != nil {
			return nil, fmt.Errorf("write synthetic input %q: %w", syn.Name, err)
		}
		rendered[i].Value = p
	}
	return directive.Args(rendered), nil
}
