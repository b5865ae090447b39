package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/imagilearn/corpus/internal/ingest"
	"github.com/imagilearn/corpus/internal/log"
)

// AdminTokenHeader carries the shared admin token.
const AdminTokenHeader = "X-Admin-Token"

// ReindexRunner is the batch-reindex dependency. *ingest.Reindexer satisfies it.
type ReindexRunner interface {
	Run(ctx context.Context, req ingest.ReindexRequest) (ingest.ReindexResult, error)
}

// AdminHandler serves token-guarded admin operations.
type AdminHandler struct {
	reindexer ReindexRunner
	token     string
	logger    log.Logger
}

// NewAdminHandler creates an admin handler. With an empty token the
// endpoints refuse every request.
func NewAdminHandler(reindexer ReindexRunner, token string, logger log.Logger) *AdminHandler {
	return &AdminHandler{reindexer: reindexer, token: token, logger: logger}
}

// RegisterRoutes registers admin routes on the given mux.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /admin/reindex", h.reindex)
}

// ReindexBody is the request body of POST /admin/reindex.
type ReindexBody struct {
	Types      []string `json:"types"`
	Since      string   `json:"since,omitempty"` // RFC 3339
	PageSize   int      `json:"pageSize,omitempty"`
	DryRun     bool     `json:"dryRun,omitempty"`
	PrunePages bool     `json:"prunePages,omitempty"`
}

// ReindexResponse is the success envelope of POST /admin/reindex.
type ReindexResponse struct {
	Ok     bool                 `json:"ok"`
	DryRun bool                 `json:"dry_run"`
	Counts ingest.ReindexResult `json:"counts"`
}

func (h *AdminHandler) authorized(r *http.Request) bool {
	if h.token == "" {
		return false
	}
	got := r.Header.Get(AdminTokenHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) == 1
}

func (h *AdminHandler) reindex(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if h.reindexer == nil {
		writeError(w, http.StatusServiceUnavailable, "reindex source not configured")
		return
	}

	var body ReindexBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeValidationError(w, []string{"invalid request body"})
		return
	}

	var violations []string
	if len(body.Types) == 0 {
		violations = append(violations, "types is required")
	}
	for _, t := range body.Types {
		switch t {
		case ingest.TypePages, ingest.TypeImagimodels, ingest.TypeReflections, ingest.TypeAll:
		default:
			violations = append(violations, "unknown type "+t)
		}
	}
	if len(violations) > 0 {
		writeValidationError(w, violations)
		return
	}

	var since time.Time
	if body.Since != "" {
		t, err := time.Parse(time.RFC3339, body.Since)
		if err != nil {
			writeValidationError(w, []string{"since must be RFC 3339"})
			return
		}
		since = t
	}

	counts, err := h.reindexer.Run(r.Context(), ingest.ReindexRequest{
		Types:      body.Types,
		Since:      since,
		PageSize:   body.PageSize,
		DryRun:     body.DryRun,
		PrunePages: body.PrunePages,
	})
	if err != nil {
		h.logger.Error("reindex failed",
			"types", body.Types,
			"error", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "reindex failed")
		return
	}

	writeJSON(w, http.StatusOK, ReindexResponse{Ok: true, DryRun: body.DryRun, Counts: counts})
}
