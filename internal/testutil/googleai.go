package testutil

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
)

// GoogleAISetup contains the resources for tests that need real Google AI
// API access.
type GoogleAISetup struct {
	Embedder ai.Embedder
	Genkit   *genkit.Genkit
	Logger   *slog.Logger
}

// SetupGoogleAI initializes Genkit with the Google AI plugin and returns a
// real embedder. Skips the test when GEMINI_API_KEY is not set.
func SetupGoogleAI(t *testing.T) *GoogleAISetup {
	t.Helper()

	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set - skipping test requiring embedder")
	}

	ctx := context.Background()

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		t.Fatal("genkit.Init returned nil")
	}

	embedder := googlegenai.GoogleAIEmbedder(g, "gemini-embedding-001")
	if embedder == nil {
		t.Fatal("GoogleAIEmbedder returned nil")
	}

	return &GoogleAISetup{
		Embedder: embedder,
		Genkit:   g,
		Logger:   DiscardLogger(),
	}
}
