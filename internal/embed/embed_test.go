package embed

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// mockEmbedder implements ai.Embedder for testing.
type mockEmbedder struct {
	dim       int
	embedErr  error
	shortResp bool // return fewer vectors than inputs
	callCount int
	lastTexts []string
}

func (m *mockEmbedder) Name() string { return "mock-embedder" }

func (m *mockEmbedder) Register(r api.Registry) {}

func (m *mockEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.callCount++
	m.lastTexts = nil
	for _, doc := range req.Input {
		if len(doc.Content) > 0 {
			m.lastTexts = append(m.lastTexts, doc.Content[0].Text)
		}
	}

	if m.embedErr != nil {
		return nil, m.embedErr
	}

	n := len(req.Input)
	if m.shortResp && n > 0 {
		n--
	}

	resp := &ai.EmbedResponse{}
	for i := 0; i < n; i++ {
		vec := make([]float32, m.dim)
		// Encode the input index so order preservation is observable.
		vec[0] = float32(i)
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{Embedding: vec})
	}
	return resp, nil
}

func newTestBatcher(t *testing.T, m *mockEmbedder, cfg Config) *Batcher {
	t.Helper()
	if cfg.Dimension == 0 {
		cfg.Dimension = int32(m.dim)
	}
	b, err := NewBatcher(m, cfg, nil)
	if err != nil {
		t.Fatalf("NewBatcher failed: %v", err)
	}
	return b
}

func TestNewBatcher_Validation(t *testing.T) {
	if _, err := NewBatcher(nil, Config{Dimension: 3}, nil); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := NewBatcher(&mockEmbedder{dim: 3}, Config{}, nil); err == nil {
		t.Error("expected error for zero dimension")
	}
}

func TestEmbedBatch_Empty(t *testing.T) {
	m := &mockEmbedder{dim: 3}
	b := newTestBatcher(t, m, Config{})

	vecs, err := b.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("empty batch should be a no-op, got: %v", err)
	}
	if vecs != nil {
		t.Errorf("expected nil vectors, got %d", len(vecs))
	}
	if m.callCount != 0 {
		t.Errorf("provider should not be called for an empty batch, got %d calls", m.callCount)
	}
}

func TestEmbedBatch_SingleCallOrderPreserved(t *testing.T) {
	m := &mockEmbedder{dim: 4}
	b := newTestBatcher(t, m, Config{})

	texts := []string{"first", "second", "third"}
	vecs, err := b.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}

	if m.callCount != 1 {
		t.Errorf("expected exactly 1 provider call, got %d", m.callCount)
	}
	if strings.Join(m.lastTexts, ",") != "first,second,third" {
		t.Errorf("provider received wrong texts: %v", m.lastTexts)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	for i, v := range vecs {
		if v.Slice()[0] != float32(i) {
			t.Errorf("vector %d out of order: marker %v", i, v.Slice()[0])
		}
	}
}

func TestEmbedBatch_ExceedsMaximum(t *testing.T) {
	m := &mockEmbedder{dim: 3}
	b := newTestBatcher(t, m, Config{MaxBatchSize: 2})

	_, err := b.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err == nil {
		t.Fatal("expected error for oversized batch")
	}
	if m.callCount != 0 {
		t.Error("provider should not be called for an oversized batch")
	}
}

func TestEmbedBatch_ProviderError(t *testing.T) {
	m := &mockEmbedder{dim: 3, embedErr: errors.New("rate limited")}
	b := newTestBatcher(t, m, Config{})

	_, err := b.EmbedBatch(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected provider error to propagate")
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("error should wrap provider error: %v", err)
	}
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	m := &mockEmbedder{dim: 3, shortResp: true}
	b := newTestBatcher(t, m, Config{})

	_, err := b.EmbedBatch(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected error when provider returns fewer vectors than inputs")
	}
	if !strings.Contains(err.Error(), "mismatch") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEmbedBatch_DimensionMismatch(t *testing.T) {
	m := &mockEmbedder{dim: 5}
	b := newTestBatcher(t, m, Config{Dimension: 8})

	_, err := b.EmbedBatch(context.Background(), []string{"a"})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	if !strings.Contains(err.Error(), "dimension") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEmbedOne(t *testing.T) {
	m := &mockEmbedder{dim: 3}
	b := newTestBatcher(t, m, Config{})

	vec, err := b.EmbedOne(context.Background(), "query text")
	if err != nil {
		t.Fatalf("EmbedOne failed: %v", err)
	}
	if len(vec.Slice()) != 3 {
		t.Errorf("expected 3-dimension vector, got %d", len(vec.Slice()))
	}
	if len(m.lastTexts) != 1 || m.lastTexts[0] != "query text" {
		t.Errorf("provider received wrong input: %v", m.lastTexts)
	}
}
