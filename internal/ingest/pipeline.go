// Package ingest implements the extract→chunk→hash→embed→upsert flow shared
// by every content source. Sources only differ in what counts as a unit and
// which metadata they attach; the batching, hashing, embedding, and upsert
// glue lives here once.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pgvector/pgvector-go"

	"github.com/imagilearn/corpus/internal/chunk"
)

// Upserter is the write side of the chunk store. *store.Store satisfies it.
type Upserter interface {
	Upsert(ctx context.Context, rows []chunk.Chunk) error
	DeleteSource(ctx context.Context, collection, sourceType, sourceID string) (int64, error)
}

// Embedder is the batched embedding client. *embed.Batcher satisfies it.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]pgvector.Vector, error)
	MaxBatchSize() int
}

// Unit is one logical piece of a source entity before splitting. Row carries
// the metadata template stamped onto every chunk the unit produces; UID,
// chunk index, content, hash, and embedding are filled in per chunk.
type Unit struct {
	Anchor string
	Text   string
	Row    chunk.Chunk

	// NoSplit forces the unit into exactly one chunk regardless of length.
	// Session artifacts are small by construction and must stay whole.
	NoSplit bool
}

// Config controls text splitting. Zero values use the chunk defaults.
type Config struct {
	TargetSize int
	Overlap    int
}

// Result reports what a pipeline run produced (or, in dry-run mode, would
// have produced).
type Result struct {
	Units  int
	Chunks int
	UIDs   []string
}

// Pipeline runs units through split→hash→embed→upsert. Batch order is
// preserved end to end: extraction order → embedding-response order →
// upsert row order.
type Pipeline struct {
	embedder Embedder
	store    Upserter
	target   int
	overlap  int
	logger   *slog.Logger
}

// New creates a Pipeline.
func New(embedder Embedder, store Upserter, cfg Config, logger *slog.Logger) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	target := cfg.TargetSize
	if target <= 0 {
		target = chunk.DefaultTargetSize
	}
	overlap := cfg.Overlap
	if overlap < 0 {
		overlap = chunk.DefaultOverlap
	}

	return &Pipeline{
		embedder: embedder,
		store:    store,
		target:   target,
		overlap:  overlap,
		logger:   logger,
	}, nil
}

// Run ingests units. Units with no extractable text are skipped silently.
// With dryRun set, it reports the chunks a real run would upsert without
// calling the embedding provider or writing to the store.
//
// Embedding or store failures abort the run and propagate; re-running the
// same units is safe because chunk identity is deterministic.
func (p *Pipeline) Run(ctx context.Context, units []Unit, dryRun bool) (*Result, error) {
	rows := p.buildRows(units)

	res := &Result{Units: len(units), Chunks: len(rows)}
	for _, r := range rows {
		res.UIDs = append(res.UIDs, r.UID)
	}
	if dryRun || len(rows) == 0 {
		return res, nil
	}

	// Embed and upsert in provider-bounded slices, preserving row order.
	batch := p.embedder.MaxBatchSize()
	for start := 0; start < len(rows); start += batch {
		end := min(start+batch, len(rows))

		texts := make([]string, end-start)
		for i := range texts {
			texts[i] = rows[start+i].Content
		}

		vecs, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding rows %d..%d: %w", start, end-1, err)
		}
		for i := range vecs {
			rows[start+i].Embedding = vecs[i]
		}

		if err := p.store.Upsert(ctx, rows[start:end]); err != nil {
			return nil, fmt.Errorf("upserting rows %d..%d: %w", start, end-1, err)
		}
	}

	p.logger.Debug("pipeline run completed", "units", res.Units, "chunks", res.Chunks)
	return res, nil
}

// buildRows splits every unit and stamps identity onto each resulting chunk.
func (p *Pipeline) buildRows(units []Unit) []chunk.Chunk {
	var rows []chunk.Chunk
	for _, u := range units {
		var parts []string
		if u.NoSplit {
			parts = chunk.Split(u.Text, len([]rune(u.Text))+1, 0)
		} else {
			parts = chunk.Split(u.Text, p.target, p.overlap)
		}
		if len(parts) == 0 {
			continue
		}

		for i, part := range parts {
			row := u.Row
			row.ChunkIdx = i
			row.UID = chunk.MakeUID(row.Collection, row.SourceType, row.SourceID, u.Anchor, i)
			row.Content = part
			row.ContentHash = chunk.ContentHash(part, row.SourceID, row.UnitIdx, row.UnitKind, row.SourceType)
			rows = append(rows, row)
		}
	}
	return rows
}
