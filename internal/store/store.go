// Package store persists chunks in PostgreSQL (pgvector) and serves the
// hybrid vector+lexical retrieval query.
//
// The upsert here is the only code path allowed to mutate chunk rows. All
// ingestion pipelines funnel through it, keyed by the deterministic chunk
// UID, so concurrent re-ingestion converges to one row per UID
// (last-writer-wins on updated_at).
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/imagilearn/corpus/internal/chunk"
)

// querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// chunkColumns is the single source of truth for the chunks column list.
// The batched INSERT and the ON CONFLICT UPDATE clause are both generated
// from it so the two can never drift apart.
var chunkColumns = []string{
	"chunk_uid", "collection", "source_type", "source_id",
	"unit_kind", "unit_type", "order_idx", "unit_idx", "chunk_idx",
	"title1", "title2", "title3", "title4",
	"domain", "slug", "locale", "visible",
	"has_image", "image_urls", "code_languages", "concepts", "mnemonic_tags", "technique_tags",
	"author_label", "user_hash", "pii_level", "sentiment", "rating",
	"content", "content_hash", "embedding", "metadata",
}

// rowSchema is the strict boundary check applied to every row before it
// reaches the database. Metadata shapes vary per pipeline, but identity and
// payload fields are non-negotiable.
var rowSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"chunk_uid", "collection", "content"},
	Properties: map[string]*jsonschema.Schema{
		"chunk_uid":  {Type: "string"},
		"collection": {Type: "string"},
		"content":    {Type: "string"},
	},
}

// Embedder turns a single query string into a vector. Defined here by the
// consumer; *embed.Batcher satisfies it.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) (pgvector.Vector, error)
}

// Store manages the chunks table.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db        querier
	embedder  Embedder
	logger    *slog.Logger
	schema    *jsonschema.Resolved
	vecWeight float64
	txtWeight float64
	language  string
}

// Option overrides a Store policy default.
type Option func(*Store)

// WithWeights overrides the hybrid score weights. This is the single
// override point for the 0.7/0.3 policy split.
func WithWeights(vec, txt float64) Option {
	return func(s *Store) {
		s.vecWeight = vec
		s.txtWeight = txt
	}
}

// WithLanguage overrides the text-search configuration used to parse query
// text for lexical ranking (default "english"). The content_tsv column is
// generated with 'english' in the schema, so a different language here must
// be paired with a migration regenerating that column; otherwise queries and
// content are parsed with mismatched configurations and ranking degrades.
func WithLanguage(lang string) Option {
	return func(s *Store) { s.language = lang }
}

// New creates a Store.
func New(db querier, embedder Embedder, logger *slog.Logger, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	resolved, err := rowSchema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolving chunk row schema: %w", err)
	}

	s := &Store{
		db:        db,
		embedder:  embedder,
		logger:    logger,
		schema:    resolved,
		vecWeight: DefaultVectorWeight,
		txtWeight: DefaultTextWeight,
		language:  DefaultLanguage,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Upsert writes all rows in one batched INSERT ... ON CONFLICT statement.
// Rows sharing a chunk_uid with an existing row have their content,
// embedding, and metadata refreshed and updated_at bumped; chunk_uid and
// created_at are never touched. Empty input is a no-op. The statement is
// atomic: either all rows apply or none do.
func (s *Store) Upsert(ctx context.Context, rows []chunk.Chunk) error {
	if len(rows) == 0 {
		return nil
	}

	args := make([]any, 0, len(rows)*len(chunkColumns))
	for i, row := range rows {
		if err := s.validateRow(row); err != nil {
			return fmt.Errorf("row %d (%s): %w", i, row.UID, err)
		}
		rowArgs, err := buildRowArgs(row)
		if err != nil {
			return fmt.Errorf("row %d (%s): %w", i, row.UID, err)
		}
		args = append(args, rowArgs...)
	}

	sql := buildUpsertSQL(len(rows))
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("upserting %d chunks: %w", len(rows), err)
	}

	s.logger.Debug("upserted chunks", "rows", len(rows), "affected", tag.RowsAffected())
	return nil
}

// DeleteSource removes every chunk belonging to one source entity. Safe to
// call for entities with no chunks (no-op). Used when a source becomes
// unpublished or invisible.
func (s *Store) DeleteSource(ctx context.Context, collection, sourceType, sourceID string) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM chunks WHERE collection = $1 AND source_type = $2 AND source_id = $3`,
		collection, sourceType, sourceID)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks for %s/%s/%s: %w", collection, sourceType, sourceID, err)
	}

	if n := tag.RowsAffected(); n > 0 {
		s.logger.Debug("pruned chunks", "collection", collection, "source_type", sourceType,
			"source_id", sourceID, "rows", n)
		return n, nil
	}
	return 0, nil
}

// validateRow applies the boundary schema. Empty required strings are
// treated as absent so they fail the required check rather than slipping
// through as zero values.
func (s *Store) validateRow(row chunk.Chunk) error {
	inst := map[string]any{}
	if row.UID != "" {
		inst["chunk_uid"] = row.UID
	}
	if row.Collection != "" {
		inst["collection"] = row.Collection
	}
	if row.Content != "" {
		inst["content"] = row.Content
	}
	if err := s.schema.Validate(inst); err != nil {
		return fmt.Errorf("invalid chunk row: %w", err)
	}
	return nil
}

// buildUpsertSQL generates the multi-row insert with positional placeholders
// and the conflict-update clause, both derived from chunkColumns.
func buildUpsertSQL(rowCount int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO chunks (")
	b.WriteString(strings.Join(chunkColumns, ", "))
	b.WriteString(") VALUES ")

	n := len(chunkColumns)
	for r := 0; r < rowCount; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for c := 0; c < n; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", r*n+c+1)
		}
		b.WriteString(")")
	}

	b.WriteString(" ON CONFLICT (chunk_uid) DO UPDATE SET ")
	for i, col := range chunkColumns[1:] { // everything but the identity key
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s = EXCLUDED.%s", col, col)
	}
	b.WriteString(", updated_at = now()")

	return b.String()
}

// buildRowArgs produces the positional arguments for one row, in
// chunkColumns order.
func buildRowArgs(row chunk.Chunk) ([]any, error) {
	metadata := row.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}

	return []any{
		row.UID, row.Collection, row.SourceType, row.SourceID,
		row.UnitKind, row.UnitType, row.OrderIdx, row.UnitIdx, row.ChunkIdx,
		row.Title1, row.Title2, row.Title3, row.Title4,
		row.Domain, row.Slug, row.Locale, row.Visible,
		row.HasImage, row.ImageURLs, row.CodeLanguages, row.Concepts, row.MnemonicTags, row.TechniqueTags,
		row.AuthorLabel, row.UserHash, row.PIILevel, row.Sentiment, row.Rating,
		row.Content, row.ContentHash, row.Embedding, metadataJSON,
	}, nil
}
