package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/imagilearn/corpus/internal/chunk"
)

// Hybrid ranking policy. Semantic similarity dominates lexical match 7:3;
// the lexical component anchors exact keyword and code-identifier hits that
// embeddings tend to miss. Overridable only at Store construction.
const (
	DefaultVectorWeight = 0.7
	DefaultTextWeight   = 0.3
	DefaultLanguage     = "english"

	// DefaultTopK bounds the result set when the caller does not.
	DefaultTopK = 8

	// SearchTimeout caps one retrieval round trip (embed + query).
	SearchTimeout = 30 * time.Second
)

// DefaultCollections is the retrieval scope when the caller supplies none.
func DefaultCollections() []string {
	return []string{chunk.CollectionCourseContent, chunk.CollectionNotion, chunk.CollectionMnemonics}
}

// SearchRequest is a transient retrieval query. Filters are additive: a nil
// filter places no restriction on its dimension.
type SearchRequest struct {
	Query        string
	TopK         int
	Collections  []string
	Domain       *string
	HasImage     *bool
	CodeLanguage *string
	Concepts     []string
	MnemonicTags []string
}

// SearchResult is one ranked chunk projection with its component scores.
type SearchResult struct {
	Chunk    chunk.Chunk
	VecScore float64
	TxtScore float64
	Score    float64
}

// searchSQL computes both component scores per candidate row in a single
// statement. Optional filters collapse to TRUE when their parameter is NULL.
// ORDER BY references the combined-score alias, so ranking and the returned
// score can never disagree.
const searchSQL = `
SELECT c.*, ($9::float8 * c.vec_score + $10::float8 * c.txt_score) AS score
FROM (
    SELECT chunk_uid, collection, source_type, source_id,
           unit_kind, unit_type, order_idx, unit_idx, chunk_idx,
           title1, title2, title3, title4,
           domain, slug, locale, visible,
           has_image, image_urls, code_languages, concepts, mnemonic_tags, technique_tags,
           author_label, user_hash, pii_level, sentiment, rating,
           content, content_hash, metadata, created_at, updated_at,
           1 - (embedding <=> $1) AS vec_score,
           ts_rank(content_tsv, plainto_tsquery($11::regconfig, $2))::float8 AS txt_score
    FROM chunks
    WHERE collection = ANY($3)
      AND ($4::text IS NULL OR domain = $4)
      AND ($5::boolean IS NULL OR has_image = $5)
      AND ($6::text IS NULL OR $6 = ANY(code_languages))
      AND ($7::text[] IS NULL OR concepts && $7)
      AND ($8::text[] IS NULL OR mnemonic_tags && $8)
) c
ORDER BY score DESC
LIMIT $12`

// Search embeds the query text and runs the hybrid vector+lexical query,
// returning at most TopK results ordered by descending combined score.
// A failed query returns an error, never an empty result set, so callers
// can tell "no matches" from "query failed".
func (s *Store) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("query text is required")
	}

	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	collections := req.Collections
	if len(collections) == 0 {
		collections = DefaultCollections()
	}

	queryCtx, cancel := context.WithTimeout(ctx, SearchTimeout)
	defer cancel()

	queryVec, err := s.embedder.EmbedOne(queryCtx, req.Query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.db.Query(queryCtx, searchSQL,
		queryVec, req.Query, collections,
		req.Domain, req.HasImage, req.CodeLanguage,
		nilIfEmpty(req.Concepts), nilIfEmpty(req.MnemonicTags),
		s.vecWeight, s.txtWeight, s.language, topK)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("hybrid search: %w", err)
	}
	defer rows.Close()

	results, err := s.scanResults(rows)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("hybrid search completed",
		"collections", collections, "top_k", topK, "results", len(results))
	return results, nil
}

func (s *Store) scanResults(rows pgx.Rows) ([]SearchResult, error) {
	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var metadataJSON []byte
		c := &r.Chunk

		err := rows.Scan(
			&c.UID, &c.Collection, &c.SourceType, &c.SourceID,
			&c.UnitKind, &c.UnitType, &c.OrderIdx, &c.UnitIdx, &c.ChunkIdx,
			&c.Title1, &c.Title2, &c.Title3, &c.Title4,
			&c.Domain, &c.Slug, &c.Locale, &c.Visible,
			&c.HasImage, &c.ImageURLs, &c.CodeLanguages, &c.Concepts, &c.MnemonicTags, &c.TechniqueTags,
			&c.AuthorLabel, &c.UserHash, &c.PIILevel, &c.Sentiment, &c.Rating,
			&c.Content, &c.ContentHash, &metadataJSON, &c.CreatedAt, &c.UpdatedAt,
			&r.VecScore, &r.TxtScore, &r.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &c.Metadata); err != nil {
				s.logger.Warn("failed to parse chunk metadata", "chunk_uid", c.UID, "error", err)
				c.Metadata = map[string]any{}
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search results: %w", err)
	}
	return results, nil
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
