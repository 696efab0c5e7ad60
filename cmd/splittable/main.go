// Package main implements the splittable CLI.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"splittable/internal/compiler"
	"splittable/internal/prof"
	"splittable/internal/trace"
	"splittable/internal/version"
)

// session carries per-invocation state that outlives command execution.
type session struct {
	tracer  trace.Tracer
	cleanup func()
	profile *prof.Session
}

func (s *session) close(stderr io.Writer) {
	if err := s.profile.Stop(); err != nil {
		fmt.Fprintf(stderr, "profile: %v\n", err)
	}
	s.profile = nil
	if s.cleanup != nil {
		s.cleanup()
		s.cleanup = nil
	}
}

// dumpRing writes buffered trace events after a failed run.
func (s *session) dumpRing(w io.Writer) {
	ring := trace.Ring(s.tracer)
	if ring == nil {
		return
	}
	fmt.Fprintln(w, "trace: last events before the failure:")
	_ = ring.Dump(w, trace.FormatText)
}

// newRootCmd builds the command tree. The root command itself runs a build.
func newRootCmd(s *session) *cobra.Command {
	root := &cobra.Command{
		Use:   "splittable [flags] <entry>...",
		Short: "Split a multi-entry JavaScript program into shared and per-entry bundles",
		Long: `splittable compiles several JavaScript entry points at once. Code used by
two or more entries goes into a shared _base bundle that loads first; code used
by one entry stays in that entry's bundle.`,
		Args:          cobra.ArbitraryArgs,
		Version:       version.Colored(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runBuild,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			tracer, cleanup, err := setupTracing(cmd)
			if err != nil {
				return err
			}
			s.tracer, s.cleanup = tracer, cleanup
			s.profile, err = setupProfiling(cmd)
			return err
		},
	}
	root.SetVersionTemplate("splittable {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringP("dir", "C", ".", "run as if started in this directory")
	pf.Bool("timings", false, "print per-stage timings")
	pf.String("trace", "", "trace output file (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	pf.Int("trace-ring-size", trace.DefaultRingSize, "events kept by the trace ring")
	pf.Duration("trace-heartbeat", 0, "emit trace heartbeats at this interval (0 disables)")
	pf.String("cpu-profile", "", "write a CPU profile to this file")
	pf.String("mem-profile", "", "write a heap profile to this file on exit")

	addPlanFlags(root)
	f := root.Flags()
	f.Bool("warnings", false, "print compiler output even when compilation succeeds")
	f.Bool("print", false, "print compiler directives instead of compiling")
	f.String("ui", "auto", "progress view (auto|on|off)")

	root.AddCommand(newPlanCmd(), newCleanCmd(), newVersionCmd())
	return root
}

// addPlanFlags registers the flags shared by every command that plans bundles.
func addPlanFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("write-to", "", "output path prefix for bundles (default from splittable.toml, else out/)")
	f.String("deps-file", "", "read resolver rows from this file instead of running the resolver")
	f.Bool("no-cache", false, "bypass the discovery cache")
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the CLI with args and returns the process exit status.
func execute(args []string, stdout, stderr io.Writer) int {
	s := &session{}
	defer s.close(stderr)
	root := newRootCmd(s)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.Execute()
	if err == nil {
		return 0
	}
	s.dumpRing(stderr)
	prefix := color.New(color.FgRed, color.Bold).Sprint("error:")
	var cerr *compiler.CompilationError
	if errors.As(err, &cerr) {
		// compiler output is shown as-is, below a one-line summary
		fmt.Fprintf(stderr, "%s compilation failed\n%s", prefix, cerr.Output)
		return 1
	}
	fmt.Fprintf(stderr, "%s %v\n", prefix, err)
	return 1
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
