package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// writeJSON writes a JSON response with the given status code. Encoding
// failures after WriteHeader can only be logged.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// errorResponse is the failure envelope. Ok is always false so callers can
// distinguish a failed query from an empty result set.
type errorResponse struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error"`
}

// validationResponse reports malformed-request violations.
type validationResponse struct {
	Ok         bool     `json:"ok"`
	Error      string   `json:"error"`
	Violations []string `json:"violations"`
}

// writeError writes a generic failure envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Ok: false, Error: msg})
}

// writeValidationError writes a 400 with the structured violation list.
func writeValidationError(w http.ResponseWriter, violations []string) {
	writeJSON(w, http.StatusBadRequest, validationResponse{
		Ok:         false,
		Error:      "validation failed",
		Violations: violations,
	})
}
