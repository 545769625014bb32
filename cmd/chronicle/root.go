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
	Use:   "chronicle",
	Short: "Chronicle - family life-story data lifecycle service",
	Long: `Chronicle manages the archival data lifecycle of family life-story
projects: export artifact generation and retention policy enforcement.

It provides:
  - Facilitator-requested project exports (zip archives or JSON documents)
  - A staged export pipeline with persisted progress
  - Scheduled retention policies with atomic project purges
  - Export artifact expiry and cleanup`,
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
