// Package cmd wires the corpus CLI: serve runs the retrieval API, reindex
// and notion-sync run batch ingestion, migrate manages the schema.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/imagilearn/corpus/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Hybrid retrieval engine for course content, notes, and session artifacts",
	Long: `corpus ingests content from the course CMS, Notion, and learning
sessions into a single PostgreSQL chunk store, and serves hybrid
vector+lexical retrieval over it.

Run 'corpus serve' to start the HTTP API, or one of the batch commands
(reindex, notion-sync) to ingest content without a server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(initLogger())
	},
}

// Execute runs the root command. Errors are logged here so main stays a
// one-liner.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		return err
	}
	return nil
}

// initLogger builds the process-wide logger. DEBUG=1 enables debug level;
// LOG_FORMAT=json switches to JSON output for log collectors.
func initLogger() log.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	if os.Getenv("LOG_FORMAT") == "json" {
		cfg.JSON = true
	}
	return log.New(cfg)
}
