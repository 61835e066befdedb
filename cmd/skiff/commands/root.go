// Package commands implements the skiff CLI commands using cobra.
package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "skiff",
		Short: "Skiff - an LLM-driven coding agent runtime",
		Long: `Skiff runs an autonomous tool-calling agent loop against an
OpenAI-compatible chat endpoint: file editing, shell execution, search
and web access, with context compaction and forced termination.

Examples:
  skiff run --config_path config.yaml --query "fix the failing test" --log_dir_path ./logs
  skiff history
  skiff tools
  skiff keyring set`,
		Version: version,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newHistoryCmd(),
		newToolsCmd(),
		newKeyringCmd(),
	)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}

// newLogger builds the CLI logger honoring the --verbose flag.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
