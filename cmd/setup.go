package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/imagilearn/corpus/db"
	"github.com/imagilearn/corpus/internal/config"
	"github.com/imagilearn/corpus/internal/embed"
	"github.com/imagilearn/corpus/internal/ingest"
	"github.com/imagilearn/corpus/internal/log"
	"github.com/imagilearn/corpus/internal/store"
)

// stack is the ingestion and retrieval core shared by serve and the batch
// commands: migrated database, embedder, chunk store, and pipeline.
type stack struct {
	cfg      *config.Config
	pool     *pgxpool.Pool
	store    *store.Store
	pipeline *ingest.Pipeline
	logger   log.Logger
}

// buildStack loads configuration, migrates the schema, and wires the
// embedding and storage layers. Callers must Close the returned stack.
func buildStack(ctx context.Context) (*stack, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger := slog.Default()

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	pool, err := store.NewPool(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		pool.Close()
		return nil, fmt.Errorf("embedder model %q not found", cfg.EmbedderModel)
	}

	batcher, err := embed.NewBatcher(embedder, embed.Config{
		Dimension:         cfg.EmbedderDimension,
		MaxBatchSize:      cfg.EmbedBatchSize,
		RequestsPerSecond: cfg.EmbedRPS,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating embed batcher: %w", err)
	}

	st, err := store.New(pool, batcher, logger,
		store.WithLanguage(cfg.SearchLanguage),
		store.WithWeights(cfg.VectorWeight, cfg.TextWeight))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating chunk store: %w", err)
	}

	pipeline, err := ingest.New(batcher, st, ingest.Config{
		TargetSize: cfg.ChunkTargetSize,
		Overlap:    cfg.ChunkOverlap,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating ingestion pipeline: %w", err)
	}

	return &stack{
		cfg:      cfg,
		pool:     pool,
		store:    st,
		pipeline: pipeline,
		logger:   logger,
	}, nil
}

func (s *stack) Close() {
	s.pool.Close()
}
