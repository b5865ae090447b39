package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/imagilearn/corpus/internal/chunk"
)

func testArtifact() SessionArtifact {
	return SessionArtifact{
		SessionID: 314,
		Legend:    "The warehouse is the heap",
		Rules:     []string{"Every box gets a label", "Labels never move, boxes do"},
		Script:    "Imagine memory as a warehouse full of labeled boxes.",
		RedFlags:  []string{"Confusing the label with the box"},
		Domain:    "javascript",
		UserHash:  "u9f2",
	}
}

func TestSessionArtifact_Compose(t *testing.T) {
	got := testArtifact().Compose()

	want := "Imagine memory as a warehouse full of labeled boxes.\n\n" +
		"RULES:\n1. Every box gets a label\n2. Labels never move, boxes do\n\n" +
		"RED FLAGS:\n1. Confusing the label with the box"
	if got != want {
		t.Errorf("Compose() = %q, want %q", got, want)
	}
}

func TestSessionArtifact_ComposeOmitsEmptySections(t *testing.T) {
	a := testArtifact()
	a.RedFlags = nil

	got := a.Compose()
	if strings.Contains(got, "RED FLAGS") {
		t.Errorf("empty red flags must omit the section header: %q", got)
	}

	a.Rules = []string{"", "  "}
	got = a.Compose()
	if strings.Contains(got, "RULES") {
		t.Errorf("blank-only rules must omit the section header: %q", got)
	}
	if got != a.Script {
		t.Errorf("script-only artifact should compose to the bare script: %q", got)
	}
}

func TestSessionArtifact_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SessionArtifact)
		wantErr bool
	}{
		{"valid", func(a *SessionArtifact) {}, false},
		{"zero session id", func(a *SessionArtifact) { a.SessionID = 0 }, true},
		{"negative session id", func(a *SessionArtifact) { a.SessionID = -1 }, true},
		{"no script but rules", func(a *SessionArtifact) { a.Script = "" }, false},
		{"nothing to store", func(a *SessionArtifact) { a.Script = ""; a.Rules = nil }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testArtifact()
			tt.mutate(&a)
			err := a.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIngestSession_ExactlyOneChunk(t *testing.T) {
	emb := &mockEmbedder{}
	st := &mockStore{}
	p := newTestPipeline(t, emb, st, Config{TargetSize: 50, Overlap: 10})

	// Compose() output far exceeds the target size; the artifact must still
	// land as a single chunk.
	res, err := p.IngestSession(context.Background(), testArtifact())
	if err != nil {
		t.Fatalf("IngestSession failed: %v", err)
	}

	if res.Chunks != 1 {
		t.Fatalf("expected exactly one chunk, got %d", res.Chunks)
	}
	wantUID := chunk.MakeUID(chunk.CollectionUserSessions, chunk.SourceTypeMetaphor, "314", "artifact", 0)
	if res.UIDs[0] != wantUID {
		t.Errorf("uid = %q, want %q", res.UIDs[0], wantUID)
	}

	row := st.rows[0]
	if row.Content != testArtifact().Compose() {
		t.Error("stored content must be the full composed artifact")
	}
	if row.Title1 != "The warehouse is the heap" {
		t.Errorf("legend not carried as title: %q", row.Title1)
	}
	if row.UserHash != "u9f2" || row.Domain != "javascript" {
		t.Errorf("provenance not carried: %+v", row)
	}
}

func TestIngestSession_RejectsInvalidArtifact(t *testing.T) {
	emb := &mockEmbedder{}
	st := &mockStore{}
	p := newTestPipeline(t, emb, st, Config{})

	_, err := p.IngestSession(context.Background(), SessionArtifact{SessionID: 0, Script: "s"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if emb.calls != 0 || st.upsertCalls != 0 {
		t.Error("invalid artifact must not reach embedder or store")
	}
}
