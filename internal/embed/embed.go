// Package embed adapts a Genkit ai.Embedder into the batched, fixed-width
// embedding client the ingestion pipelines and retrieval query consume.
package embed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// DefaultMaxBatchSize bounds a single provider request. Ingestion pipelines
// slice their unit lists to stay under this.
const DefaultMaxBatchSize = 128

// Config controls batching behavior.
type Config struct {
	// Dimension is the requested output dimensionality. Must match the
	// vector column width (chunk.VectorDimension in production).
	Dimension int32

	// MaxBatchSize caps texts per provider call. 0 means DefaultMaxBatchSize.
	MaxBatchSize int

	// RequestsPerSecond rate-limits provider calls. 0 disables limiting.
	RequestsPerSecond float64
}

// Batcher turns text batches into fixed-width vectors via a single provider
// call per batch. Response order is aligned with input order, so callers may
// zip texts and vectors positionally.
//
// Batcher is safe for concurrent use.
type Batcher struct {
	embedder ai.Embedder
	dim      int32
	maxBatch int
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewBatcher creates a Batcher around the given embedder.
func NewBatcher(embedder ai.Embedder, cfg Config, logger *slog.Logger) (*Batcher, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", cfg.Dimension)
	}
	if logger == nil {
		logger = slog.Default()
	}

	maxBatch := cfg.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchSize
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Batcher{
		embedder: embedder,
		dim:      cfg.Dimension,
		maxBatch: maxBatch,
		limiter:  limiter,
		logger:   logger,
	}, nil
}

// MaxBatchSize reports the per-call text cap.
func (b *Batcher) MaxBatchSize() int { return b.maxBatch }

// Dimension reports the configured vector width.
func (b *Batcher) Dimension() int32 { return b.dim }

// EmbedBatch embeds texts in one provider call, returning one vector per
// input in input order. The whole batch fails together; there is no
// partial-batch fallback; retrying the same batch is safe because chunk
// identity is deterministic.
func (b *Batcher) EmbedBatch(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) > b.maxBatch {
		return nil, fmt.Errorf("batch of %d texts exceeds maximum %d", len(texts), b.maxBatch)
	}

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for embed rate limiter: %w", err)
		}
	}

	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(t, nil)
	}

	dim := b.dim
	resp, err := b.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   docs,
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding batch of %d texts: %w", len(texts), err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors",
			len(texts), len(resp.Embeddings))
	}

	vectors := make([]pgvector.Vector, len(texts))
	for i, e := range resp.Embeddings {
		if len(e.Embedding) != int(b.dim) {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(e.Embedding), b.dim)
		}
		vectors[i] = pgvector.NewVector(e.Embedding)
	}

	b.logger.Debug("embedded batch", "texts", len(texts), "dimension", b.dim)
	return vectors, nil
}

// EmbedOne embeds a single text. Used for retrieval queries.
func (b *Batcher) EmbedOne(ctx context.Context, text string) (pgvector.Vector, error) {
	vecs, err := b.EmbedBatch(ctx, []string{text})
	if err != nil {
		return pgvector.Vector{}, err
	}
	return vecs[0], nil
}
