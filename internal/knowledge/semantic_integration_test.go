package knowledge_test

import (
	"context"
	"testing"

	"google.golang.org/genai"

	"github.com/kofiasare/sankofa/internal/knowledge"
	"github.com/kofiasare/sankofa/internal/testutil"
)

// setupSemanticStore builds a Store against a real database and the real
// Gemini embedder, wired the same way the application wires it. Skipped in
// short mode and when GEMINI_API_KEY is not set.
func setupSemanticStore(t *testing.T) *knowledge.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	setup := testutil.SetupGoogleAI(t)
	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	dim := knowledge.VectorDimension
	return knowledge.New(knowledge.NewQueries(db.Pool), setup.Embedder, setup.Logger,
		knowledge.WithEmbedOptions(&genai.EmbedContentConfig{OutputDimensionality: &dim}))
}

func TestSemanticSearchRanking(t *testing.T) {
	store := setupSemanticStore(t)
	ctx := context.Background()

	docs := []knowledge.Document{
		{
			ID:       "greetings",
			Content:  "Ojekoo is the Ga greeting for good morning, and the reply is ojekoo nakai.",
			Metadata: map[string]string{"source_type": knowledge.SourceTypeText},
		},
		{
			ID:       "numbers",
			Content:  "Counting in Ga begins ekome, enyo, ete, ejwe, enumo.",
			Metadata: map[string]string{"source_type": knowledge.SourceTypeText},
		},
		{
			ID:       "food",
			Content:  "Kenkey is a fermented maize dish served with pepper sauce and fried fish.",
			Metadata: map[string]string{"source_type": knowledge.SourceTypeText},
		},
	}
	for _, doc := range docs {
		if err := store.Add(ctx, doc); err != nil {
			t.Fatalf("Add(%q) error = %v", doc.ID, err)
		}
	}

	// The query shares no exact phrasing with the numbers or food
	// documents, so ranking has to come from meaning.
	results, err := store.Search(ctx, "how do I say good morning?", knowledge.WithTopK(3))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Search() returned nothing")
	}
	if results[0].Document.ID != "greetings" {
		t.Errorf("top result = %q, want the greetings document", results[0].Document.ID)
	}
	for i, r := range results {
		if r.Similarity < 0 || r.Similarity > 1 {
			t.Errorf("result %d similarity = %v, want within [0, 1]", i, r.Similarity)
		}
		if i > 0 && r.Similarity > results[i-1].Similarity {
			t.Errorf("results out of order: %v after %v", r.Similarity, results[i-1].Similarity)
		}
	}
}

func TestPrimerSeedRetrievable(t *testing.T) {
	store := setupSemanticStore(t)
	ctx := context.Background()

	seeder := knowledge.NewSeeder(store, testutil.DiscardLogger())
	indexed, err := seeder.IndexAll(ctx)
	if err != nil {
		t.Fatalf("IndexAll() error = %v", err)
	}
	if indexed == 0 {
		t.Fatal("IndexAll() indexed nothing")
	}

	results, err := store.Search(ctx, "greetings in Ga",
		knowledge.WithTopK(5),
		knowledge.WithFilter("source_type", knowledge.SourceTypeSeed))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no seed documents matched")
	}
	for _, r := range results {
		if got := r.Document.Metadata["source_type"]; got != knowledge.SourceTypeSeed {
			t.Errorf("document %q source_type = %q, want %q", r.Document.ID, got, knowledge.SourceTypeSeed)
		}
	}
}
