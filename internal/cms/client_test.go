package cms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/imagilearn/corpus/internal/log"
)

func TestNewClient_RequiresBaseURL(t *testing.T) {
	if _, err := NewClient("", "token", log.NewNop()); err == nil {
		t.Fatal("NewClient() with empty base URL should fail")
	}
}

func TestListPages(t *testing.T) {
	var gotPath, gotAuth string
	var gotQuery map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = map[string]string{
			"since":  r.URL.Query().Get("since"),
			"offset": r.URL.Query().Get("offset"),
			"limit":  r.URL.Query().Get("limit"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pages": [{
			"id": "42",
			"course_title": "JavaScript",
			"title": "Closures",
			"domain": "javascript",
			"published": true,
			"visible": true,
			"updated_at": "2026-03-01T10:00:00Z",
			"blocks": [
				{"kind": "text", "html": "<p>Hello</p>"},
				{"kind": "code", "code": "let x = 1", "language": "javascript"}
			]
		}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "secret", log.NewNop())
	if err != nil {
		t.Fatalf("NewClient() unexpected error: %v", err)
	}

	since := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	pages, err := client.ListPages(context.Background(), since, 100, 50)
	if err != nil {
		t.Fatalf("ListPages() unexpected error: %v", err)
	}

	if gotPath != "/api/rag/pages" {
		t.Errorf("path = %q, want /api/rag/pages", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want Bearer secret", gotAuth)
	}
	if gotQuery["since"] != "2026-02-01T00:00:00Z" {
		t.Errorf("since = %q, want 2026-02-01T00:00:00Z", gotQuery["since"])
	}
	if gotQuery["offset"] != "100" || gotQuery["limit"] != "50" {
		t.Errorf("offset/limit = %q/%q, want 100/50", gotQuery["offset"], gotQuery["limit"])
	}

	if len(pages) != 1 {
		t.Fatalf("pages = %d, want 1", len(pages))
	}
	page := pages[0]
	if page.ID != "42" || page.Title != "Closures" || !page.Published {
		t.Errorf("unexpected page mapping: %+v", page)
	}
	if len(page.Blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(page.Blocks))
	}
	if page.Blocks[1].Kind != "code" || page.Blocks[1].Language != "javascript" {
		t.Errorf("unexpected code block mapping: %+v", page.Blocks[1])
	}
}

func TestListPages_ZeroSinceOmitted(t *testing.T) {
	var sinceParam string
	var sinceSet bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sinceParam = r.URL.Query().Get("since")
		_, sinceSet = r.URL.Query()["since"]
		_, _ = w.Write([]byte(`{"pages": []}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "", log.NewNop())
	if err != nil {
		t.Fatalf("NewClient() unexpected error: %v", err)
	}

	pages, err := client.ListPages(context.Background(), time.Time{}, 0, 50)
	if err != nil {
		t.Fatalf("ListPages() unexpected error: %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("pages = %d, want 0", len(pages))
	}
	if sinceSet {
		t.Errorf("since param should be omitted for zero watermark, got %q", sinceParam)
	}
}

func TestListImagimodels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/rag/imagimodels" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"imagimodels": [{
			"id": "m1",
			"name": "Event Loop Kitchen",
			"domain": "javascript",
			"mnemonic_tags": ["kitchen"],
			"description_html": "<p>orders queue up</p>",
			"visible": true
		}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "", log.NewNop())
	if err != nil {
		t.Fatalf("NewClient() unexpected error: %v", err)
	}

	models, err := client.ListImagimodels(context.Background(), time.Time{}, 0, 10)
	if err != nil {
		t.Fatalf("ListImagimodels() unexpected error: %v", err)
	}
	if len(models) != 1 {
		t.Fatalf("models = %d, want 1", len(models))
	}
	if models[0].Name != "Event Loop Kitchen" || models[0].MnemonicTags[0] != "kitchen" {
		t.Errorf("unexpected model mapping: %+v", models[0])
	}
}

func TestListReflections_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "", log.NewNop())
	if err != nil {
		t.Fatalf("NewClient() unexpected error: %v", err)
	}

	if _, err := client.ListReflections(context.Background(), time.Time{}, 0, 10); err == nil {
		t.Fatal("ListReflections() should fail on HTTP 500")
	}
}
