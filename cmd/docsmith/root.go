package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "docsmith",
	Short: "Multi-agent documentation generator",
	Long: `Docsmith turns a codebase into a documentation package: it analyzes
the source, drafts business, functional, security and architecture documents,
and renders them into the formats you ask for.

When a managed agent runtime is configured, analysis and drafting are routed
to remote agents; otherwise everything runs locally. Both modes produce
identical document packages.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
