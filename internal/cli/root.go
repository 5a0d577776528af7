// Package cli provides the command-line interface for lightgraph.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lightgraph/lightgraph-go/internal/client"
	"github.com/lightgraph/lightgraph-go/internal/config"
	"github.com/lightgraph/lightgraph-go/internal/task"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and clients, initialized in PersistentPreRunE.
	cfg        config.Config
	backend    *client.Client
	taskStore  *task.Store
	logCleanup func() error
)

// rootCmd represents the base command. Called without a subcommand it runs
// the interactive shell.
var rootCmd = &cobra.Command{
	Use:   "lightgraph",
	Short: "Terminal client for the LightGraph RAG backend",
	Long: `LightGraph is a terminal client for a knowledge-graph RAG backend powered
by LightRAG and Ollama.

Organize documents into groups with isolated knowledge graphs, ingest text
and files, and query them with graph-based, vector-based, or mixed retrieval.

Run without arguments for the interactive shell, which blocks until the
backend's models are warm and shows ingestion progress.`,
	Version: Version,
	RunE:    runShell,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCleanup != nil {
			_ = logCleanup()
		}
	},
}

func init() {
	// Assigned here rather than in the composite literal to avoid an
	// initialization cycle: this function references isShellCommand,
	// which references rootCmd.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		var logger *slog.Logger
		if isShellCommand(cmd) {
			// The TUI owns the terminal; keep logs out of stderr.
			logger, logCleanup = config.SetupFileLogger(cfg.LogFile, cfg.LogLevel)
		} else {
			logger, logCleanup = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		}
		slog.SetDefault(logger)

		backend = client.NewWithTimeout(cfg.ServerURL, cfg.RequestTimeout)
		taskStore = task.NewStore(cfg.TaskFile)
		return nil
	}
}

// isShellCommand reports whether cmd renders the interactive shell.
func isShellCommand(cmd *cobra.Command) bool {
	return cmd == rootCmd
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(conversationsCmd)
	rootCmd.AddCommand(warmupCmd)
}
