package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"splittable/internal/prof"
)

// setupProfiling starts the runtime profiles requested on the command line.
func setupProfiling(cmd *cobra.Command) (*prof.Session, error) {
	pf := cmd.Root().PersistentFlags()
	cpuPath, err := pf.GetString("cpu-profile")
	if err != nil {
		return nil, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	memPath, err := pf.GetString("mem-profile")
	if err != nil {
		return nil, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	return prof.Start(cpuPath, memPath)
}
