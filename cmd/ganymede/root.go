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
	Use:   "ganymede",
	Short: "Ganymede - multi-provider AI gateway",
	Long: `Ganymede is an open-source AI gateway that routes chat completion
requests across multiple LLM providers behind one stable API.

It provides:
  - Strategy-based model selection (cheapest, fastest, smartest, balanced)
  - Automatic fallback with per-provider circuit breaking
  - A WebSocket session layer for interactive clients
  - An event bus bridging process events to connected sessions
  - Hot reload of the provider catalog

For more information, visit: https://github.com/mercator-hq/ganymede`,
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
