package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/imagilearn/corpus/api"
	"github.com/imagilearn/corpus/internal/cms"
	"github.com/imagilearn/corpus/internal/ingest"
	"github.com/imagilearn/corpus/internal/observability"
)

const tracerShutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the retrieval and ingestion HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s, err := buildStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	shutdownTracing, err := observability.Setup(ctx, observability.Config{
		Endpoint:    s.cfg.OTLPEndpoint,
		Environment: s.cfg.Environment,
		ServiceName: s.cfg.ServiceName,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), tracerShutdownTimeout)
		defer shutdownCancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			s.logger.Warn("tracer shutdown", "error", err)
		}
	}()

	// The reindex endpoint needs a CMS to list from. Without one the
	// server still serves queries and push ingestion.
	var reindexer api.ReindexRunner
	if s.cfg.CMSBaseURL != "" {
		source, err := cms.NewClient(s.cfg.CMSBaseURL, s.cfg.CMSToken, s.logger)
		if err != nil {
			return fmt.Errorf("creating CMS client: %w", err)
		}
		reindexer, err = ingest.NewReindexer(source, s.pipeline, s.store, s.logger)
		if err != nil {
			return fmt.Errorf("creating reindexer: %w", err)
		}
	} else {
		s.logger.Warn("cms_base_url not configured, /admin/reindex disabled")
	}

	server := api.NewServer(api.Deps{
		Pool:       s.pool,
		Searcher:   s.store,
		Ingester:   s.pipeline,
		Reindexer:  reindexer,
		AdminToken: s.cfg.AdminToken,
		Logger:     s.logger,
	})
	return server.Run(ctx, s.cfg.ServerAddr)
}
