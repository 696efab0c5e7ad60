package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"splittable/internal/buildpipeline"
	"splittable/internal/bundle"
	"splittable/internal/directive"
)

type planPayload struct {
	Root       string          `json:"root"`
	Entries    []string        `json:"entries"`
	Boundaries []string        `json:"boundaries"`
	Bundles    []bundlePayload `json:"bundles"`
	Args       []string        `json:"args"`
}

type bundlePayload struct {
	Name      string   `json:"name"`
	Output    string   `json:"output"`
	DependsOn string   `json:"depends_on,omitempty"`
	Modules   []string `json:"modules"`
}

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [flags] <entry>...",
		Short: "Print the bundle layout and compiler arguments as JSON",
		Long:  "Run discovery and bundle planning without invoking the compiler.",
		RunE:  runPlan,
	}
	addPlanFlags(cmd)
	return cmd
}

func runPlan(cmd *cobra.Command, args []string) error {
	in, err := readPlanInputs(cmd, args)
	if err != nil {
		return err
	}
	plan, err := buildpipeline.Plan(cmd.Context(), in.req)
	if err != nil {
		return err
	}

	payload := planPayload{
		Root:       in.project.Root,
		Entries:    plan.Graph.Entries,
		Boundaries: plan.Graph.Boundaries,
		Args:       directive.Args(plan.Directives),
	}
	if payload.Boundaries == nil {
		payload.Boundaries = []string{}
	}
	hasBase := plan.Bundles.Base() != nil
	for _, name := range plan.Bundles.Names() {
		b := plan.Bundles.Bundles[name]
		bp := bundlePayload{
			Name:    name,
			Output:  in.req.Emit.Prefix() + directive.SanitizeName(name) + ".js",
			Modules: b.Modules,
		}
		if hasBase && !b.IsBase {
			bp.DependsOn = bundle.BaseName
		}
		payload.Bundles = append(payload.Bundles, bp)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
