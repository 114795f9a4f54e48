package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"
)

// DBTX is the subset of pgx needed by Queries.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries is the hand-written data access layer for documents.
type Queries struct {
	db DBTX
}

// NewQueries creates a Queries bound to db.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// UpsertDocumentParams are the inputs for UpsertDocument.
type UpsertDocumentParams struct {
	ID        string
	Content   string
	Metadata  []byte
	Embedding pgvector.Vector
	CreatedAt pgtype.Timestamptz
}

// SearchDocumentsParams are the inputs for the filtered vector search.
type SearchDocumentsParams struct {
	QueryEmbedding pgvector.Vector
	FilterMetadata []byte
	ResultLimit    int32
}

// SearchDocumentsAllParams are the inputs for the unfiltered vector search.
type SearchDocumentsAllParams struct {
	QueryEmbedding pgvector.Vector
	ResultLimit    int32
}

// DocumentRow is one documents row, with similarity populated by the
// search queries and zero elsewhere.
type DocumentRow struct {
	ID         string
	Content    string
	Metadata   []byte
	CreatedAt  pgtype.Timestamptz
	Similarity float64
}

const upsertDocumentSQL = `
INSERT INTO documents (id, content, metadata, embedding, created_at)
VALUES ($1, $2, $3, $4, COALESCE($5, now()))
ON CONFLICT (id) DO UPDATE SET
    content   = EXCLUDED.content,
    metadata  = EXCLUDED.metadata,
    embedding = EXCLUDED.embedding`

// UpsertDocument inserts a document or refreshes an existing one. IDs are
// content hashes, so re-indexing unchanged content is a no-op rewrite.
func (q *Queries) UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error {
	_, err := q.db.Exec(ctx, upsertDocumentSQL,
		arg.ID,
		arg.Content,
		arg.Metadata,
		arg.Embedding,
		arg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}
	return nil
}

const searchDocumentsSQL = `
SELECT id, content, metadata, created_at,
       1 - (embedding <=> $1) AS similarity
FROM documents
WHERE metadata @> $2
ORDER BY embedding <=> $1
LIMIT $3`

// SearchDocuments runs a cosine similarity search restricted to documents
// whose metadata contains the filter object. The @> containment operator
// gives AND semantics across filter keys.
func (q *Queries) SearchDocuments(ctx context.Context, arg SearchDocumentsParams) ([]DocumentRow, error) {
	rows, err := q.db.Query(ctx, searchDocumentsSQL, arg.QueryEmbedding, arg.FilterMetadata, arg.ResultLimit)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()
	return collectDocumentRows(rows, true)
}

const searchDocumentsAllSQL = `
SELECT id, content, metadata, created_at,
       1 - (embedding <=> $1) AS similarity
FROM documents
ORDER BY embedding <=> $1
LIMIT $2`

// SearchDocumentsAll runs an unfiltered cosine similarity search.
func (q *Queries) SearchDocumentsAll(ctx context.Context, arg SearchDocumentsAllParams) ([]DocumentRow, error) {
	rows, err := q.db.Query(ctx, searchDocumentsAllSQL, arg.QueryEmbedding, arg.ResultLimit)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()
	return collectDocumentRows(rows, true)
}

const countDocumentsSQL = `SELECT COUNT(*) FROM documents WHERE metadata @> $1`

// CountDocuments counts documents whose metadata contains the filter.
func (q *Queries) CountDocuments(ctx context.Context, filterMetadata []byte) (int64, error) {
	var count int64
	if err := q.db.QueryRow(ctx, countDocumentsSQL, filterMetadata).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

const countDocumentsAllSQL = `SELECT COUNT(*) FROM documents`

// CountDocumentsAll counts all documents.
func (q *Queries) CountDocumentsAll(ctx context.Context) (int64, error) {
	var count int64
	if err := q.db.QueryRow(ctx, countDocumentsAllSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

const deleteDocumentSQL = `DELETE FROM documents WHERE id = $1`

// DeleteDocument removes one document by id.
func (q *Queries) DeleteDocument(ctx context.Context, id string) error {
	if _, err := q.db.Exec(ctx, deleteDocumentSQL, id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

const listBySourceTypeSQL = `
SELECT id, content, metadata, created_at
FROM documents
WHERE metadata->>'source_type' = $1
ORDER BY created_at DESC
LIMIT $2`

// ListDocumentsBySourceType lists documents of one source type, newest
// first, without touching embeddings.
func (q *Queries) ListDocumentsBySourceType(ctx context.Context, sourceType string, limit int32) ([]DocumentRow, error) {
	rows, err := q.db.Query(ctx, listBySourceTypeSQL, sourceType, limit)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()
	return collectDocumentRows(rows, false)
}

const documentsTableExistsSQL = `SELECT to_regclass('public.documents') IS NOT NULL`

// DocumentsTableExists reports whether the documents table is present.
func (q *Queries) DocumentsTableExists(ctx context.Context) (bool, error) {
	var exists bool
	if err := q.db.QueryRow(ctx, documentsTableExistsSQL).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking documents table: %w", err)
	}
	return exists, nil
}

func collectDocumentRows(rows pgx.Rows, withSimilarity bool) ([]DocumentRow, error) {
	var out []DocumentRow
	for rows.Next() {
		var r DocumentRow
		var err error
		if withSimilarity {
			err = rows.Scan(&r.ID, &r.Content, &r.Metadata, &r.CreatedAt, &r.Similarity)
		} else {
			err = rows.Scan(&r.ID, &r.Content, &r.Metadata, &r.CreatedAt)
		}
		if err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}
	return out, nil
}
