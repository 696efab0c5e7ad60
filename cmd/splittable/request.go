package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"splittable/internal/buildpipeline"
	"splittable/internal/compiler"
	"splittable/internal/config"
	"splittable/internal/directive"
	"splittable/internal/discovery"
	"splittable/internal/trace"
)

const appName = "splittable"

// planInputs is everything a command needs to plan or build.
type planInputs struct {
	project *config.Project
	req     *buildpipeline.Request
}

// readPlanInputs loads splittable.toml and turns flags and positional
// entries into a pipeline request.
func readPlanInputs(cmd *cobra.Command, args []string) (*planInputs, error) {
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return nil, err
	}
	writeTo, err := cmd.Flags().GetString("write-to")
	if err != nil {
		return nil, err
	}
	depsFile, err := cmd.Flags().GetString("deps-file")
	if err != nil {
		return nil, err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return nil, err
	}

	project, err := config.Discover(dir)
	if err != nil {
		return nil, err
	}
	cfg := project.Config

	// resolver and compiler run in the project root, so entries go absolute
	var entries []string
	if len(args) > 0 {
		for _, arg := range args {
			p := arg
			if !filepath.IsAbs(p) {
				p = filepath.Join(dir, p)
			}
			abs, err := filepath.Abs(p)
			if err != nil {
				return nil, fmt.Errorf("resolve entry %q: %w", arg, err)
			}
			entries = append(entries, abs)
		}
	} else {
		for _, e := range cfg.Build.Entries {
			entries = append(entries, project.Abs(e))
		}
	}
	if len(entries) == 0 {
		return nil, &buildpipeline.UsageError{Msg: "no entry modules given (pass them as arguments or set [build].entries)"}
	}

	if strings.TrimSpace(writeTo) == "" {
		writeTo = cfg.Build.WriteTo
	}

	var source discovery.Source
	if depsFile != "" {
		if !filepath.IsAbs(depsFile) {
			depsFile = filepath.Join(dir, depsFile)
		}
		source = discovery.FileSource{Path: depsFile}
	} else {
		source = discovery.CommandSource{Command: cfg.Resolver.Command, Dir: project.Root}
		if !noCache {
			cache, err := discovery.OpenCache(appName)
			if err != nil {
				trace.Point(trace.FromContext(cmd.Context()), trace.ScopeDriver, "discovery-cache", "disabled: "+err.Error())
			} else {
				source = discovery.CachedSource{
					Inner:   source,
					Cache:   cache,
					Dir:     project.Root,
					Command: cfg.Resolver.Command,
				}
			}
		}
	}

	return &planInputs{
		project: project,
		req: &buildpipeline.Request{
			Entries: entries,
			Root:    project.Root,
			Source:  source,
			Emit: directive.Options{
				Flags:        cfg.Compiler.Flags,
				OutputPrefix: writeTo,
			},
			Compiler: &compiler.Runner{Command: cfg.Compiler.Command, Dir: project.Root},
		},
	}, nil
}
