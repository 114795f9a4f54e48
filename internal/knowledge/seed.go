package knowledge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kofiasare/sankofa/internal/log"
)

// Seeder indexes the built-in Ga language primer documents. The primer
// gives the assistant a baseline to retrieve from before any user content
// has been indexed.
//
// Thread-safe: IndexAll and ClearAll are serialized by a mutex.
type Seeder struct {
	store  *Store
	logger log.Logger
	mu     sync.Mutex
}

// NewSeeder creates a Seeder over store.
func NewSeeder(store *Store, logger log.Logger) *Seeder {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Seeder{
		store:  store,
		logger: logger,
	}
}

// Ensure indexes the primer only when no seed documents are present yet,
// so startup does not re-embed the primer on every boot. Returns the
// number of documents indexed, zero when the primer already exists.
func (s *Seeder) Ensure(ctx context.Context) (int, error) {
	s.mu.Lock()
	existing, err := s.store.ListBySourceType(ctx, SourceTypeSeed, 1)
	s.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("checking primer documents: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	return s.IndexAll(ctx)
}

// IndexAll indexes every primer document. Fixed ids make this idempotent:
// re-running on startup refreshes rather than duplicates. Individual
// failures are logged and skipped; it errors only when nothing indexed.
func (s *Seeder) IndexAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := primerDocuments()

	successCount := 0
	for _, doc := range docs {
		if err := s.store.Add(ctx, doc); err != nil {
			s.logger.Error("indexing primer document failed",
				"doc_id", doc.ID,
				"error", err)
			continue
		}
		successCount++
	}

	s.logger.Debug("primer documents indexed",
		"total", len(docs),
		"success", successCount,
		"failed", len(docs)-successCount)

	if successCount == 0 {
		return 0, fmt.Errorf("indexing primer documents: all %d failed", len(docs))
	}
	return successCount, nil
}

// ClearAll removes all primer documents. Used by tests and manual
// reindexing.
func (s *Seeder) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.store.ListBySourceType(ctx, SourceTypeSeed, 1000)
	if err != nil {
		return fmt.Errorf("listing primer documents: %w", err)
	}

	deletedCount := 0
	for _, doc := range docs {
		if err := s.store.Delete(ctx, doc.ID); err != nil {
			s.logger.Warn("deleting primer document failed",
				"id", doc.ID,
				"error", err)
			continue
		}
		deletedCount++
	}

	s.logger.Info("primer documents cleared",
		"deleted", deletedCount,
		"failed", len(docs)-deletedCount)
	return nil
}

// primerDocuments builds the built-in Ga language primer.
func primerDocuments() []Document {
	now := time.Now()

	return []Document{
		{
			ID: "seed:ga-language",
			Content: `About the Ga language

Ga (Gã) is a Kwa language spoken by the Ga people of Greater Accra, Ghana.
It is the traditional language of Accra and surrounding coastal towns such
as Tema, Nungua, Teshie and La. Ga is written in a Latin-based alphabet
that includes the letters ɛ and ɔ, and is closely related to Dangme.

The name Sankofa comes from the Akan proverb pictured by a bird reaching
back for an egg: go back and fetch what was left behind. This service
carries that idea, helping learners reach back for the Ga language.`,
			Metadata: map[string]string{
				"source_type": SourceTypeSeed,
				"topic":       "language-overview",
				"title":       "About the Ga language",
			},
			CreatedAt: now,
		},
		{
			ID: "seed:ga-greetings",
			Content: `Common Ga greetings

Ojekoo is the everyday morning greeting in Ga, close to "good morning" in
English. The usual reply is also Ojekoo. Greetings matter in Ga culture;
starting any conversation without one is considered abrupt.

Other frequent greetings and phrases:
- Ojekoo: good morning
- Oshwiee: good afternoon
- Te oyaa tɛŋŋ? : how are you?
- Miyaa ojogbaŋŋ: I am fine
- Oyiwala dɔŋŋ: thank you

Greetings to an elder are given with the right hand and often accompany a
slight bow. The response to a greeting usually echoes the greeting itself.`,
			Metadata: map[string]string{
				"source_type": SourceTypeSeed,
				"topic":       "greetings",
				"title":       "Common Ga greetings",
			},
			CreatedAt: now,
		},
		{
			ID: "seed:ga-numbers",
			Content: `Counting in Ga

The Ga numbers from one to ten:
1 ekome, 2 enyɔ, 3 etɛ, 4 ejwɛ, 5 enumɔ,
6 ekpaa, 7 kpawo, 8 kpaanyɔ, 9 nɛɛhu, 10 nyɔŋma.

Numbers above ten are formed by combination, for example nyɔŋma kɛ ekome
for eleven (ten and one). Market trading in Accra commonly mixes Ga
numbers with English ones.`,
			Metadata: map[string]string{
				"source_type": SourceTypeSeed,
				"topic":       "numbers",
				"title":       "Counting in Ga",
			},
			CreatedAt: now,
		},
	}
}
