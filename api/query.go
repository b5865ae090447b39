package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/imagilearn/corpus/internal/chunk"
	"github.com/imagilearn/corpus/internal/log"
	"github.com/imagilearn/corpus/internal/store"
)

// MaxTopK bounds how many results one query may request.
const MaxTopK = 50

// Searcher is the retrieval dependency. *store.Store satisfies it.
type Searcher interface {
	Search(ctx context.Context, req store.SearchRequest) ([]store.SearchResult, error)
}

// QueryHandler serves hybrid retrieval queries.
type QueryHandler struct {
	searcher Searcher
	logger   log.Logger
}

// NewQueryHandler creates a query handler.
func NewQueryHandler(searcher Searcher, logger log.Logger) *QueryHandler {
	return &QueryHandler{searcher: searcher, logger: logger}
}

// RegisterRoutes registers the query route on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /rag/query", h.query)
}

// QueryFilters are the optional, additive retrieval filters. Omitted fields
// do not restrict results on that dimension.
type QueryFilters struct {
	Domain       *string  `json:"domain,omitempty"`
	HasImage     *bool    `json:"has_image,omitempty"`
	CodeLanguage *string  `json:"code_language,omitempty"`
	Concepts     []string `json:"concepts,omitempty"`
	MnemonicTags []string `json:"mnemonic_tags,omitempty"`
}

// QueryRequest is the body of POST /rag/query.
type QueryRequest struct {
	Query       string       `json:"query"`
	TopK        int          `json:"topK,omitempty"`
	Collections []string     `json:"collections,omitempty"`
	Filters     QueryFilters `json:"filters,omitempty"`
}

// QueryResult is one ranked chunk in the response.
type QueryResult struct {
	ChunkUID    string   `json:"chunk_uid"`
	Collection  string   `json:"collection"`
	SourceType  string   `json:"source_type"`
	SourceID    string   `json:"source_id"`
	Title1      string   `json:"title1,omitempty"`
	Title2      string   `json:"title2,omitempty"`
	Title3      string   `json:"title3,omitempty"`
	Title4      string   `json:"title4,omitempty"`
	Domain      string   `json:"domain,omitempty"`
	Slug        string   `json:"slug,omitempty"`
	Concepts    []string `json:"concepts,omitempty"`
	Tags        []string `json:"mnemonic_tags,omitempty"`
	HasImage    bool     `json:"has_image"`
	ImageURLs   []string `json:"image_urls,omitempty"`
	AuthorLabel string   `json:"author_label,omitempty"`
	Content     string   `json:"content"`
	VecScore    float64  `json:"vec_score"`
	TxtScore    float64  `json:"txt_score"`
	Score       float64  `json:"score"`
}

// QueryResponse is the success envelope of POST /rag/query.
type QueryResponse struct {
	Ok      bool          `json:"ok"`
	Results []QueryResult `json:"results"`
}

func (r QueryRequest) validate() []string {
	var violations []string
	if strings.TrimSpace(r.Query) == "" {
		violations = append(violations, "query is required")
	}
	if r.TopK < 0 || r.TopK > MaxTopK {
		violations = append(violations, fmt.Sprintf("topK must be between 1 and %d", MaxTopK))
	}
	for _, c := range r.Collections {
		if !chunk.ValidCollection(c) {
			violations = append(violations, fmt.Sprintf("unknown collection %q", c))
		}
	}
	return violations
}

func (h *QueryHandler) query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, []string{"invalid request body"})
		return
	}
	if violations := req.validate(); len(violations) > 0 {
		writeValidationError(w, violations)
		return
	}

	results, err := h.searcher.Search(r.Context(), store.SearchRequest{
		Query:        req.Query,
		TopK:         req.TopK,
		Collections:  req.Collections,
		Domain:       req.Filters.Domain,
		HasImage:     req.Filters.HasImage,
		CodeLanguage: req.Filters.CodeLanguage,
		Concepts:     req.Filters.Concepts,
		MnemonicTags: req.Filters.MnemonicTags,
	})
	if err != nil {
		h.logger.Error("retrieval query failed",
			"error", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	resp := QueryResponse{Ok: true, Results: make([]QueryResult, len(results))}
	for i, res := range results {
		resp.Results[i] = toQueryResult(res)
	}
	writeJSON(w, http.StatusOK, resp)
}

func toQueryResult(res store.SearchResult) QueryResult {
	c := res.Chunk
	return QueryResult{
		ChunkUID:    c.UID,
		Collection:  c.Collection,
		SourceType:  c.SourceType,
		SourceID:    c.SourceID,
		Title1:      c.Title1,
		Title2:      c.Title2,
		Title3:      c.Title3,
		Title4:      c.Title4,
		Domain:      c.Domain,
		Slug:        c.Slug,
		Concepts:    c.Concepts,
		Tags:        c.MnemonicTags,
		HasImage:    c.HasImage,
		ImageURLs:   c.ImageURLs,
		AuthorLabel: c.AuthorLabel,
		Content:     c.Content,
		VecScore:    res.VecScore,
		TxtScore:    res.TxtScore,
		Score:       res.Score,
	}
}
