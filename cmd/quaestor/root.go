package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "quaestor",
	Short: "Quaestor - policy-driven spend governance engine",
	Long: `Quaestor is a spend governance engine for B2B purchasing. It evaluates
purchase requests against prioritized policy rules, routes spend that needs
human sign-off through approval workflows, and meters spending limits with
threshold alerting, forecasting, and period rollover.

Core capabilities:
  - Priority-ordered policy rules with auto-approve, approval, and reject actions
  - Multi-step approval workflows with quorum, delegation, and escalation
  - Budget metering with soft/hard limits, thresholds, and rollover
  - Spending trend analysis, forecasting, and savings suggestions
  - Audit journal of every evaluation, workflow action, and rollover`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
