// Package commands implements the firmckpt cobra commands.
package commands

import (
	"github.com/spf13/cobra"
)

// Persistent flag names shared by all subcommands.
const (
	flagVerbose = "verbose"
	flagQuiet   = "quiet"
	flagLogJSON = "log-json"
	flagConfig  = "config"
)

// NewRootCommand builds the firmckpt command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "firmckpt",
		Short: "Report how far each firm has progressed through the review pipeline",
		Long: `firmckpt reads the per-firm checkpoint files the review-processing
pipeline leaves in its checkpoint directory and reports how many firms sit in
each stage (validation, nlp_processing, topic_modeling, embeddings).

Commands:
  scan      Summarize a checkpoint directory
  mcp       Serve the scan as an MCP tool over stdio
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolP(flagVerbose, "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP(flagQuiet, "q", false, "only log errors; the report is still printed")
	rootCmd.PersistentFlags().Bool(flagLogJSON, false, "emit logs as JSON")
	rootCmd.PersistentFlags().String(flagConfig, "", "config file (default: ./.firmckpt.yaml or ~/.firmckpt.yaml)")

	rootCmd.AddCommand(NewScanCommand())
	rootCmd.AddCommand(NewMCPCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// boolFlag reads a flag that may be inherited from the root command.
// A missing flag reads as false so subcommands also run standalone.
func boolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false
	}

	return v
}

func stringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return ""
	}

	return v
}
