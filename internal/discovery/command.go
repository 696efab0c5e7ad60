package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// CommandSource runs an external resolver with the entry paths appended to
// Command and decodes its stdout.
type CommandSource struct {
	Command []string
	Dir     string
}

// Discover implements Source.
func (s CommandSource) Discover(ctx context.Context, entries []string) ([]Record, error) {
	if len(s.Command) == 0 {
		return nil, &ResolutionError{Reason: "no resolver command configured"}
	}
	if _, err := exec.LookPath(s.Command[0]); err != nil {
		return nil, &ResolutionError{Reason: fmt.Sprintf("resolver %q not found", s.Command[0]), Err: err}
	}

	args := make([]string, 0, len(s.Command)-1+len(entries))
	args = append(args, s.Command[1:]...)
	args = append(args, entries...)

	// #nosec G204 -- resolver command comes from project configuration
	cmd := exec.CommandContext(ctx, s.Command[0], args...)
	cmd.Dir = s.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		reason := "resolver failed"
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			reason = fmt.Sprintf("resolver exited with status %d", exitErr.ExitCode())
		}
		return nil, &ResolutionError{Reason: reason, Output: stderr.String(), Err: err}
	}

	records, err := DecodeRows(stdout.Bytes())
	if err != nil {
		return nil, &ResolutionError{Reason: "unreadable resolver output", Output: stderr.String(), Err: err}
	}
	return records, nil
}

// FileSource reads rows recorded earlier (for example `browserify --deps >
// deps.json`). The file may hold more modules than one build needs; the
// graph stage keeps only what the requested entries reach.
type FileSource struct {
	Path string
}

// Discover implements Source.
func (s FileSource) Discover(_ context.Context, _ []string) ([]Record, error) {
	// #nosec G304 -- path is supplied by the user on the command line
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, &ResolutionError{Reason: fmt.Sprintf("cannot read deps file %q", s.Path), Err: err}
	}
	records, err := DecodeRows(data)
	if err != nil {
		return nil, &ResolutionError{Reason: fmt.Sprintf("deps file %q", s.Path), Err: err}
	}
	return records, nil
}
