package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/imagilearn/corpus/internal/ingest"
	"github.com/imagilearn/corpus/internal/log"
)

// Ingester is the push-ingestion dependency. *ingest.Pipeline satisfies it.
type Ingester interface {
	IngestNote(ctx context.Context, n ingest.NotePayload) (*ingest.Result, error)
	IngestSession(ctx context.Context, a ingest.SessionArtifact) (*ingest.Result, error)
}

// IngestHandler serves the externally-pushed ingestion endpoints.
type IngestHandler struct {
	ingester Ingester
	logger   log.Logger
}

// NewIngestHandler creates an ingestion handler.
func NewIngestHandler(ingester Ingester, logger log.Logger) *IngestHandler {
	return &IngestHandler{ingester: ingester, logger: logger}
}

// RegisterRoutes registers ingestion routes on the given mux.
func (h *IngestHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /notion/ingest", h.ingestNote)
	mux.HandleFunc("POST /sessions/ingest", h.ingestSession)
}

// NoteResponse is the success envelope of POST /notion/ingest.
type NoteResponse struct {
	Ok            bool     `json:"ok"`
	PageID        string   `json:"page_id"`
	ChunksCreated int      `json:"chunks_created"`
	ChunkUIDs     []string `json:"chunk_uids"`
}

func (h *IngestHandler) ingestNote(w http.ResponseWriter, r *http.Request) {
	var payload ingest.NotePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeValidationError(w, []string{"invalid request body"})
		return
	}
	if err := payload.Validate(); err != nil {
		writeValidationError(w, []string{err.Error()})
		return
	}

	res, err := h.ingester.IngestNote(r.Context(), payload)
	if err != nil {
		h.logger.Error("note ingestion failed",
			"page_id", payload.PageID,
			"error", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}

	writeJSON(w, http.StatusOK, NoteResponse{
		Ok:            true,
		PageID:        payload.PageID,
		ChunksCreated: res.Chunks,
		ChunkUIDs:     res.UIDs,
	})
}

// SessionResponse is the success envelope of POST /sessions/ingest.
type SessionResponse struct {
	Ok        bool     `json:"ok"`
	SessionID int64    `json:"session_id"`
	ChunkUIDs []string `json:"chunk_uids"`
}

func (h *IngestHandler) ingestSession(w http.ResponseWriter, r *http.Request) {
	var artifact ingest.SessionArtifact
	if err := json.NewDecoder(r.Body).Decode(&artifact); err != nil {
		writeValidationError(w, []string{"invalid request body"})
		return
	}
	if err := artifact.Validate(); err != nil {
		writeValidationError(w, []string{err.Error()})
		return
	}

	res, err := h.ingester.IngestSession(r.Context(), artifact)
	if err != nil {
		h.logger.Error("session ingestion failed",
			"session_id", artifact.SessionID,
			"error", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{
		Ok:        true,
		SessionID: artifact.SessionID,
		ChunkUIDs: res.UIDs,
	})
}
