package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"splittable/internal/discovery"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the discovery cache",
		Long:  "Remove cached resolver output so the next build runs the resolver again.",
		Args:  cobra.NoArgs,
		RunE:  runClean,
	}
}

func runClean(cmd *cobra.Command, _ []string) error {
	cache, err := discovery.OpenCache(appName)
	if err != nil {
		return fmt.Errorf("open discovery cache: %w", err)
	}
	if err := cache.DropAll(); err != nil {
		return fmt.Errorf("failed to remove %q: %w", cache.Dir(), err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", cache.Dir())
	return nil
}
