package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSeederIndexAll(t *testing.T) {
	ctx := context.Background()

	t.Run("indexes every primer document", func(t *testing.T) {
		querier := &mockDocQuerier{}
		store := New(querier, &mockEmbedder{}, nil)
		seeder := NewSeeder(store, nil)

		count, err := seeder.IndexAll(ctx)
		if err != nil {
			t.Fatalf("IndexAll() error = %v", err)
		}
		want := len(primerDocuments())
		if count != want {
			t.Errorf("IndexAll() = %d, want %d", count, want)
		}
		if querier.upsertCalls != want {
			t.Errorf("upsert called %d times, want %d", querier.upsertCalls, want)
		}
	})

	t.Run("errors when nothing indexed", func(t *testing.T) {
		querier := &mockDocQuerier{upsertErr: errors.New("db down")}
		store := New(querier, &mockEmbedder{}, nil)
		seeder := NewSeeder(store, nil)

		if _, err := seeder.IndexAll(ctx); err == nil {
			t.Error("IndexAll() succeeded with every upsert failing")
		}
	})
}

func TestSeederEnsure(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds an empty knowledge base", func(t *testing.T) {
		querier := &mockDocQuerier{}
		store := New(querier, &mockEmbedder{}, nil)
		seeder := NewSeeder(store, nil)

		count, err := seeder.Ensure(ctx)
		if err != nil {
			t.Fatalf("Ensure() error = %v", err)
		}
		if want := len(primerDocuments()); count != want {
			t.Errorf("Ensure() = %d, want %d", count, want)
		}
		if querier.lastSourceType != SourceTypeSeed {
			t.Errorf("checked source type %q", querier.lastSourceType)
		}
	})

	t.Run("skips when the primer is already present", func(t *testing.T) {
		querier := &mockDocQuerier{
			listRows: []DocumentRow{
				{ID: "seed:ga-greetings", Metadata: []byte(`{"source_type":"seed"}`)},
			},
		}
		store := New(querier, &mockEmbedder{}, nil)
		seeder := NewSeeder(store, nil)

		count, err := seeder.Ensure(ctx)
		if err != nil {
			t.Fatalf("Ensure() error = %v", err)
		}
		if count != 0 {
			t.Errorf("Ensure() = %d, want 0", count)
		}
		if querier.upsertCalls != 0 {
			t.Errorf("upsert called %d times on a seeded store", querier.upsertCalls)
		}
	})

	t.Run("propagates the presence check failure", func(t *testing.T) {
		querier := &mockDocQuerier{listErr: errors.New("db down")}
		store := New(querier, &mockEmbedder{}, nil)
		seeder := NewSeeder(store, nil)

		if _, err := seeder.Ensure(ctx); err == nil {
			t.Error("Ensure() succeeded with the listing failing")
		}
		if querier.upsertCalls != 0 {
			t.Errorf("upsert called %d times after a failed check", querier.upsertCalls)
		}
	})
}

func TestSeederClearAll(t *testing.T) {
	querier := &mockDocQuerier{
		listRows: []DocumentRow{
			{ID: "seed:ga-greetings", Metadata: []byte(`{"source_type":"seed"}`)},
		},
	}
	store := New(querier, &mockEmbedder{}, nil)
	seeder := NewSeeder(store, nil)

	if err := seeder.ClearAll(context.Background()); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}
	if querier.lastDeletedID != "seed:ga-greetings" {
		t.Errorf("deleted %q", querier.lastDeletedID)
	}
}

func TestPrimerDocuments(t *testing.T) {
	docs := primerDocuments()
	if len(docs) == 0 {
		t.Fatal("no primer documents")
	}

	seen := make(map[string]bool)
	for _, doc := range docs {
		if !strings.HasPrefix(doc.ID, "seed:") {
			t.Errorf("primer id %q lacks seed: prefix", doc.ID)
		}
		if seen[doc.ID] {
			t.Errorf("duplicate primer id %q", doc.ID)
		}
		seen[doc.ID] = true
		if doc.Metadata["source_type"] != SourceTypeSeed {
			t.Errorf("primer %q source_type = %q", doc.ID, doc.Metadata["source_type"])
		}
		if doc.Content == "" {
			t.Errorf("primer %q has empty content", doc.ID)
		}
	}
}
