package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/imagilearn/corpus/internal/config"
	"github.com/imagilearn/corpus/internal/log"
)

// EmbedderSetup bundles the resources embedder-backed integration tests need.
type EmbedderSetup struct {
	Embedder ai.Embedder
	Genkit   *genkit.Genkit
	Logger   log.Logger
}

// SetupEmbedder initializes genkit with the Google AI plugin and returns the
// default embedding model. Skips the test when GEMINI_API_KEY is not set, so
// the integration suite degrades gracefully on machines without credentials.
func SetupEmbedder(t *testing.T) *EmbedderSetup {
	t.Helper()

	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set - skipping test requiring embedder")
	}

	ctx := context.Background()
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))

	embedder := googlegenai.GoogleAIEmbedder(g, config.DefaultEmbedderModel)
	if embedder == nil {
		t.Fatalf("embedder %q not found", config.DefaultEmbedderModel)
	}

	return &EmbedderSetup{
		Embedder: embedder,
		Genkit:   g,
		Logger:   log.NewNop(),
	}
}
