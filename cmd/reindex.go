package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/imagilearn/corpus/internal/cms"
	"github.com/imagilearn/corpus/internal/ingest"
)

var reindexFlags struct {
	types      []string
	since      string
	pageSize   int
	dryRun     bool
	prunePages bool
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Batch-reindex CMS content into the chunk store",
	Long: `Reindex lists entities from the CMS and re-ingests them. The upsert is
idempotent, so re-running after a failure is safe; use --since to limit the
run to recently updated entities.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReindex(cmd.Context())
	},
}

func init() {
	reindexCmd.Flags().StringSliceVar(&reindexFlags.types, "types", []string{ingest.TypeAll},
		"entity types to reindex: pages, imagimodels, reflections, all")
	reindexCmd.Flags().StringVar(&reindexFlags.since, "since", "",
		"only entities updated at or after this RFC 3339 timestamp")
	reindexCmd.Flags().IntVar(&reindexFlags.pageSize, "page-size", ingest.DefaultReindexPageSize,
		"listing batch size")
	reindexCmd.Flags().BoolVar(&reindexFlags.dryRun, "dry-run", false,
		"chunk and count without embedding or writing")
	reindexCmd.Flags().BoolVar(&reindexFlags.prunePages, "prune-pages", false,
		"delete chunks of unpublished or invisible pages")
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(parent context.Context) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var since time.Time
	if reindexFlags.since != "" {
		t, err := time.Parse(time.RFC3339, reindexFlags.since)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}
		since = t
	}

	// One reindex at a time per machine. Concurrent runs are not harmful
	// (the upsert is idempotent) but would double embedding cost.
	lockPath, err := reindexLockPath()
	if err != nil {
		return err
	}
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring reindex lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another reindex is already running (lock: %s)", lockPath)
	}
	defer func() { _ = lock.Unlock() }()

	s, err := buildStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.cfg.CMSBaseURL == "" {
		return fmt.Errorf("cms_base_url is not configured")
	}
	source, err := cms.NewClient(s.cfg.CMSBaseURL, s.cfg.CMSToken, s.logger)
	if err != nil {
		return fmt.Errorf("creating CMS client: %w", err)
	}
	reindexer, err := ingest.NewReindexer(source, s.pipeline, s.store, s.logger)
	if err != nil {
		return fmt.Errorf("creating reindexer: %w", err)
	}

	start := time.Now()
	result, err := reindexer.Run(ctx, ingest.ReindexRequest{
		Types:      reindexFlags.types,
		Since:      since,
		PageSize:   reindexFlags.pageSize,
		DryRun:     reindexFlags.dryRun,
		PrunePages: reindexFlags.prunePages,
	})
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}

	s.logger.Info("reindex completed",
		"types", reindexFlags.types, "dry_run", reindexFlags.dryRun,
		"duration", time.Since(start).Round(time.Millisecond))

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func reindexLockPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}
	dir := filepath.Join(home, ".corpus")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating lock directory: %w", err)
	}
	return filepath.Join(dir, "reindex.lock"), nil
}
