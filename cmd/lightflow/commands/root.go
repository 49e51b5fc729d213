package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lightflow",
		Short: "Lightflow - Deterministic Workflow Engine",
		Long: `Lightflow executes workflows defined as jobs of ordered tasks with an
explicit dependency map across jobs.

Features:
  - YAML workflow definitions with shell command tasks
  - Deterministic scheduling: the same definition always runs in the same order
  - Setup/teardown lifecycle around every task
  - Typed, validated job parameters
  - Cross-job dependency maps with cycle detection`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newGraphCommand())
	rootCmd.AddCommand(newRunCommand())

	return rootCmd
}
