package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imagilearn/corpus/internal/ingest"
	"github.com/imagilearn/corpus/internal/log"
)

// fakeIngester implements Ingester.
type fakeIngester struct {
	result       *ingest.Result
	noteErr      error
	sessionErr   error
	lastNote     ingest.NotePayload
	lastArtifact ingest.SessionArtifact
}

func (f *fakeIngester) IngestNote(ctx context.Context, n ingest.NotePayload) (*ingest.Result, error) {
	f.lastNote = n
	if f.noteErr != nil {
		return nil, f.noteErr
	}
	return f.result, nil
}

func (f *fakeIngester) IngestSession(ctx context.Context, a ingest.SessionArtifact) (*ingest.Result, error) {
	f.lastArtifact = a
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.result, nil
}

func TestIngestHandler_Note(t *testing.T) {
	ing := &fakeIngester{result: &ingest.Result{
		Units:  1,
		Chunks: 2,
		UIDs:   []string{"notion:notion_note:p1:note:0", "notion:notion_note:p1:note:1"},
	}}
	h := NewIngestHandler(ing, log.NewNop())

	w := postJSON(t, h.ingestNote, "/notion/ingest",
		`{"page_id":"p1","properties":{"title":"Event Loop","tags":["js"]},"content":"body text","url":"https://notion.so/p1"}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp NoteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Ok)
	assert.Equal(t, "p1", resp.PageID)
	assert.Equal(t, 2, resp.ChunksCreated)
	assert.Len(t, resp.ChunkUIDs, 2)

	assert.Equal(t, "Event Loop", ing.lastNote.Properties.Title)
}

func TestIngestHandler_NoteValidation(t *testing.T) {
	h := NewIngestHandler(&fakeIngester{}, log.NewNop())

	tests := []struct {
		name string
		body string
	}{
		{"missing page_id", `{"content":"text"}`},
		{"missing content", `{"page_id":"p1"}`},
		{"malformed json", `{"page_id"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, h.ingestNote, "/notion/ingest", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestIngestHandler_NoteFailure(t *testing.T) {
	h := NewIngestHandler(&fakeIngester{noteErr: errors.New("provider down")}, log.NewNop())

	w := postJSON(t, h.ingestNote, "/notion/ingest", `{"page_id":"p1","content":"text"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Ok)
}

func TestIngestHandler_Session(t *testing.T) {
	ing := &fakeIngester{result: &ingest.Result{
		Units: 1, Chunks: 1,
		UIDs: []string{"user_sessions:metaphor_map:314:artifact:0"},
	}}
	h := NewIngestHandler(ing, log.NewNop())

	w := postJSON(t, h.ingestSession, "/sessions/ingest",
		`{"session_id":314,"legend":"warehouse","script":"imagine a warehouse","rules":["label boxes"],"red_flags":[]}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Ok)
	assert.Equal(t, int64(314), resp.SessionID)
	assert.Equal(t, []string{"user_sessions:metaphor_map:314:artifact:0"}, resp.ChunkUIDs)

	assert.Equal(t, int64(314), ing.lastArtifact.SessionID)
}

func TestIngestHandler_SessionValidation(t *testing.T) {
	h := NewIngestHandler(&fakeIngester{}, log.NewNop())

	w := postJSON(t, h.ingestSession, "/sessions/ingest", `{"session_id":0,"script":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
