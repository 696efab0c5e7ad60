package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"splittable/internal/buildpipeline"
	"splittable/internal/directive"
)

func runBuild(cmd *cobra.Command, args []string) error {
	warnings, err := cmd.Flags().GetBool("warnings")
	if err != nil {
		return err
	}
	printOnly, err := cmd.Flags().GetBool("print")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	timings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	in, err := readPlanInputs(cmd, args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if printOnly {
		plan, err := buildpipeline.Plan(ctx, in.req)
		if err != nil {
			return err
		}
		for _, d := range plan.Directives {
			fmt.Fprintln(out, d.String())
		}
		if timings {
			printStageTimings(cmd.ErrOrStderr(), plan.Timings)
		}
		return nil
	}

	var res buildpipeline.BuildResult
	if wantsProgressView(mode, out) {
		items := buildpipeline.DisplayNames(in.req.Entries, in.req.Root)
		res, err = runBuildWithUI(ctx, out, "splittable", items, in.req)
	} else {
		res, err = buildpipeline.Build(ctx, in.req)
	}
	if err != nil {
		return err
	}
	if warnings && strings.TrimSpace(res.Output) != "" {
		fmt.Fprint(cmd.ErrOrStderr(), res.Output)
	}
	prefix := in.req.Emit.Prefix()
	for _, name := range res.Bundles.Names() {
		fmt.Fprintf(out, "wrote %s%s.js (%d modules)\n", prefix, directive.SanitizeName(name), len(res.Bundles.Bundles[name].Modules))
	}
	if timings {
		printStageTimings(out, res.Timings)
	}
	return nil
}
