package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/imagilearn/corpus/internal/notion"
)

var notionSyncFlags struct {
	maxPages int
}

var notionSyncCmd = &cobra.Command{
	Use:   "notion-sync",
	Short: "Pull shared Notion pages into the notes collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNotionSync(cmd.Context())
	},
}

func init() {
	notionSyncCmd.Flags().IntVar(&notionSyncFlags.maxPages, "max-pages", 100,
		"maximum number of pages to sync in one run")
	rootCmd.AddCommand(notionSyncCmd)
}

func runNotionSync(parent context.Context) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s, err := buildStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.cfg.NotionToken == "" {
		return fmt.Errorf("notion_token is not configured (set NOTION_TOKEN)")
	}
	client, err := notion.NewClient(s.cfg.NotionToken, s.logger)
	if err != nil {
		return fmt.Errorf("creating Notion client: %w", err)
	}

	result, err := notion.Sync(ctx, client, s.pipeline, notionSyncFlags.maxPages, s.logger)
	if err != nil {
		return fmt.Errorf("notion sync: %w", err)
	}

	fmt.Printf("Synced %d pages (%d chunks) in %s; skipped %d, failed %d\n",
		result.PagesSynced, result.Chunks, result.Duration.Round(time.Millisecond),
		result.PagesSkipped, result.PagesFailed)
	return nil
}
