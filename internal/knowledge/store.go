// Package knowledge manages the heritage document store: vector indexing
// and semantic search over PostgreSQL with pgvector.
//
// Documents are embedded on Add and searched by cosine similarity. Metadata
// is a flat string map stored as JSONB; searches can filter on it with AND
// semantics. Document ids are content hashes, so indexing the same content
// twice updates in place instead of duplicating.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/kofiasare/sankofa/internal/log"
)

// Querier is the data access surface Store depends on. *Queries satisfies
// it; tests substitute mocks.
type Querier interface {
	UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error
	SearchDocuments(ctx context.Context, arg SearchDocumentsParams) ([]DocumentRow, error)
	SearchDocumentsAll(ctx context.Context, arg SearchDocumentsAllParams) ([]DocumentRow, error)
	CountDocuments(ctx context.Context, filterMetadata []byte) (int64, error)
	CountDocumentsAll(ctx context.Context) (int64, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocumentsBySourceType(ctx context.Context, sourceType string, limit int32) ([]DocumentRow, error)
	DocumentsTableExists(ctx context.Context) (bool, error)
}

// Store manages heritage documents with vector search.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries      Querier
	embedder     ai.Embedder
	embedOptions any
	logger       log.Logger
}

// Option configures a Store at construction.
type Option func(*Store)

// WithEmbedOptions sets provider-specific options passed on every embed
// request. The Gemini embedder needs its output dimensionality pinned to
// VectorDimension here; embedders that natively emit VectorDimension-sized
// vectors leave this unset.
func WithEmbedOptions(opts any) Option {
	return func(s *Store) {
		s.embedOptions = opts
	}
}

// New creates a Store. A nil logger discards output.
func New(querier Querier, embedder ai.Embedder, logger log.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	s := &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready reports whether the document store can serve searches. Returns
// ErrUnavailable when the documents table is missing, so callers can fail
// before doing work with side effects.
func (s *Store) Ready(ctx context.Context) error {
	exists, err := s.queries.DocumentsTableExists(ctx)
	if err != nil {
		return fmt.Errorf("checking store readiness: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: documents table missing, run migrations", ErrUnavailable)
	}
	return nil
}

// Add embeds the document content and upserts it.
func (s *Store) Add(ctx context.Context, doc Document) error {
	embedding, err := s.embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	err = s.queries.UpsertDocument(ctx, UpsertDocumentParams{
		ID:        doc.ID,
		Content:   doc.Content,
		Metadata:  metadataJSON,
		Embedding: pgvector.NewVector(embedding),
		CreatedAt: pgtype.Timestamptz{Time: doc.CreatedAt, Valid: !doc.CreatedAt.IsZero()},
	})
	if err != nil {
		return fmt.Errorf("storing document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added document", "id", doc.ID, "content_length", len(doc.Content))
	return nil
}

// Search returns the documents most similar to query, ordered by
// similarity descending.
//
//	results, err := store.Search(ctx, "Ga greetings",
//	    knowledge.WithTopK(10),
//	    knowledge.WithFilter("source_type", "file"))
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	embedding, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	queryEmbedding := pgvector.NewVector(embedding)

	var rows []DocumentRow
	if len(cfg.filter) > 0 {
		// Filters always go through json.Marshal, never string building,
		// so the JSONB containment query stays parameterized.
		filterJSON, marshalErr := json.Marshal(cfg.filter)
		if marshalErr != nil {
			return nil, fmt.Errorf("encoding filter: %w", marshalErr)
		}
		rows, err = s.queries.SearchDocuments(queryCtx, SearchDocumentsParams{
			QueryEmbedding: queryEmbedding,
			FilterMetadata: filterJSON,
			ResultLimit:    clampLimit(cfg.topK),
		})
	} else {
		rows, err = s.queries.SearchDocumentsAll(queryCtx, SearchDocumentsAllParams{
			QueryEmbedding: queryEmbedding,
			ResultLimit:    clampLimit(cfg.topK),
		})
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	return s.rowsToResults(rows), nil
}

// Count returns the number of documents matching filter, or all documents
// when filter is empty.
func (s *Store) Count(ctx context.Context, filter map[string]string) (int, error) {
	var count int64
	var err error

	if len(filter) > 0 {
		filterJSON, marshalErr := json.Marshal(filter)
		if marshalErr != nil {
			return 0, fmt.Errorf("encoding filter: %w", marshalErr)
		}
		count, err = s.queries.CountDocuments(ctx, filterJSON)
	} else {
		count, err = s.queries.CountDocumentsAll(ctx)
	}
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}

	if count > math.MaxInt {
		return 0, fmt.Errorf("document count %d exceeds platform int capacity", count)
	}
	return int(count), nil
}

// Delete removes a document by id.
func (s *Store) Delete(ctx context.Context, docID string) error {
	if err := s.queries.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("deleting document %q: %w", docID, err)
	}
	s.logger.Debug("deleted document", "id", docID)
	return nil
}

// ListBySourceType lists documents of one source type, newest first,
// without similarity scoring.
func (s *Store) ListBySourceType(ctx context.Context, sourceType string, limit int32) ([]Document, error) {
	const maxListLimit = 1000
	if limit <= 0 || limit > maxListLimit {
		return nil, fmt.Errorf("limit must be between 1 and %d, got %d", maxListLimit, limit)
	}
	switch sourceType {
	case SourceTypeFile, SourceTypeText, SourceTypeSeed:
	default:
		return nil, fmt.Errorf("invalid sourceType %q, must be one of: file, text, seed", sourceType)
	}

	rows, err := s.queries.ListDocumentsBySourceType(ctx, sourceType, limit)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	documents := make([]Document, 0, len(rows))
	for _, row := range rows {
		documents = append(documents, s.rowToDocument(row))
	}
	return documents, nil
}

// embed produces the embedding vector for one text.
func (s *Store) embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
		Options: s.embedOptions,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedder returned no vector")
	}
	return resp.Embeddings[0].Embedding, nil
}

func (s *Store) rowsToResults(rows []DocumentRow) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, Result{
			Document:   s.rowToDocument(row),
			Similarity: float32(row.Similarity),
		})
	}
	return results
}

func (s *Store) rowToDocument(row DocumentRow) Document {
	var metadata map[string]string
	if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
		s.logger.Warn("unparseable document metadata", "document_id", row.ID, "error", err)
		metadata = make(map[string]string)
	}

	var createdAt time.Time
	if row.CreatedAt.Valid {
		createdAt = row.CreatedAt.Time
	}

	return Document{
		ID:        row.ID,
		Content:   row.Content,
		Metadata:  metadata,
		CreatedAt: createdAt,
	}
}

func clampLimit(k int) int32 {
	if k <= 0 {
		return 5
	}
	if k > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(k)
}
