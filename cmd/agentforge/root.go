package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "agentforge",
	Short: "Multi-model agent task orchestrator",
	Long: `agentforge dispatches tasks across a roster of AI agents, scores
their output with a simple reinforcement-style scorer, and routes
high-risk file changes through a review/approve step before anything
touches disk.

With no arguments, "serve" boots the dispatch loop and blocks.`,
	RunE: runServe,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a settings YAML file (bypasses XDG/project discovery)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
