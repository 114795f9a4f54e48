package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of pgx needed by Queries. Satisfied by *pgxpool.Pool,
// *pgx.Conn and pgx.Tx, so the same query methods run pooled or inside a
// transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries is the hand-written data access layer for conversations.
type Queries struct {
	db DBTX
}

// NewQueries creates a Queries bound to db.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to the given transaction.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// InsertMessageParams are the inputs for InsertMessage.
type InsertMessageParams struct {
	ConversationID uuid.UUID
	Role           Role
	Content        string
	Metadata       map[string]any
	SequenceNumber int32
}

// UpsertMetaParams are the inputs for UpsertMeta. A nil Summary or Title
// preserves the stored value for that column.
type UpsertMetaParams struct {
	ConversationID uuid.UUID
	Summary        *string
	Title          *string
}

const insertMessageSQL = `
INSERT INTO messages (conversation_id, role, content, metadata, sequence_number)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, conversation_id, role, content, metadata, sequence_number, created_at`

// InsertMessage appends one message row and returns it as stored.
func (q *Queries) InsertMessage(ctx context.Context, arg InsertMessageParams) (Message, error) {
	metadata, err := marshalMetadata(arg.Metadata)
	if err != nil {
		return Message{}, err
	}

	row := q.db.QueryRow(ctx, insertMessageSQL,
		uuidToPgUUID(arg.ConversationID),
		string(arg.Role),
		arg.Content,
		metadata,
		arg.SequenceNumber,
	)
	return scanMessage(row)
}

const lockConversationSQL = `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`

// LockConversation takes a transaction-scoped advisory lock on the
// conversation, serializing sequence number allocation across concurrent
// appends. Must run inside a transaction.
func (q *Queries) LockConversation(ctx context.Context, conversationID uuid.UUID) error {
	if _, err := q.db.Exec(ctx, lockConversationSQL, conversationID.String()); err != nil {
		return fmt.Errorf("locking conversation: %w", err)
	}
	return nil
}

const maxSequenceNumberSQL = `
SELECT COALESCE(MAX(sequence_number), 0)
FROM messages
WHERE conversation_id = $1`

// MaxSequenceNumber returns the highest sequence number in the
// conversation, 0 when it has no messages.
func (q *Queries) MaxSequenceNumber(ctx context.Context, conversationID uuid.UUID) (int32, error) {
	var max int32
	if err := q.db.QueryRow(ctx, maxSequenceNumberSQL, uuidToPgUUID(conversationID)).Scan(&max); err != nil {
		return 0, fmt.Errorf("querying max sequence number: %w", err)
	}
	return max, nil
}

const listMessagesSQL = `
SELECT id, conversation_id, role, content, metadata, sequence_number, created_at
FROM messages
WHERE conversation_id = $1
ORDER BY sequence_number ASC
LIMIT NULLIF($2::int, 0)`

// ListMessages returns messages ascending by sequence. limit 0 means all.
func (q *Queries) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int32) ([]Message, error) {
	rows, err := q.db.Query(ctx, listMessagesSQL, uuidToPgUUID(conversationID), limit)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

const listRecentMessagesSQL = `
SELECT id, conversation_id, role, content, metadata, sequence_number, created_at
FROM (
    SELECT id, conversation_id, role, content, metadata, sequence_number, created_at
    FROM messages
    WHERE conversation_id = $1
    ORDER BY sequence_number DESC
    LIMIT $2
) recent
ORDER BY sequence_number ASC`

// ListRecentMessages returns the most recent limit messages, oldest first.
func (q *Queries) ListRecentMessages(ctx context.Context, conversationID uuid.UUID, limit int32) ([]Message, error) {
	rows, err := q.db.Query(ctx, listRecentMessagesSQL, uuidToPgUUID(conversationID), limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

const hasMessagesSQL = `SELECT EXISTS (SELECT 1 FROM messages WHERE conversation_id = $1)`

// HasMessages reports whether the conversation has at least one message.
func (q *Queries) HasMessages(ctx context.Context, conversationID uuid.UUID) (bool, error) {
	var exists bool
	if err := q.db.QueryRow(ctx, hasMessagesSQL, uuidToPgUUID(conversationID)).Scan(&exists); err != nil {
		return false, fmt.Errorf("querying conversation existence: %w", err)
	}
	return exists, nil
}

const getMetaSQL = `
SELECT conversation_id, summary, title, updated_at
FROM conversation_meta
WHERE conversation_id = $1`

// GetMeta returns the meta row, or ErrMetaNotFound when none exists yet.
func (q *Queries) GetMeta(ctx context.Context, conversationID uuid.UUID) (Meta, error) {
	var (
		id      pgtype.UUID
		summary string
		title   string
		updated pgtype.Timestamptz
	)
	err := q.db.QueryRow(ctx, getMetaSQL, uuidToPgUUID(conversationID)).Scan(&id, &summary, &title, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return Meta{}, ErrMetaNotFound
	}
	if err != nil {
		return Meta{}, fmt.Errorf("querying conversation meta: %w", err)
	}

	return Meta{
		ConversationID: pgUUIDToUUID(id),
		Summary:        summary,
		Title:          title,
		UpdatedAt:      updated.Time,
	}, nil
}

const upsertMetaSQL = `
INSERT INTO conversation_meta (conversation_id, summary, title, updated_at)
VALUES ($1, COALESCE($2, ''), COALESCE($3, ''), now())
ON CONFLICT (conversation_id) DO UPDATE SET
    summary    = COALESCE($2, conversation_meta.summary),
    title      = COALESCE($3, conversation_meta.title),
    updated_at = now()`

// UpsertMeta writes summary and/or title. COALESCE keeps the stored value
// for any field passed as nil, so a title-only write never clears the
// summary and vice versa.
func (q *Queries) UpsertMeta(ctx context.Context, arg UpsertMetaParams) error {
	if _, err := q.db.Exec(ctx, upsertMetaSQL, uuidToPgUUID(arg.ConversationID), arg.Summary, arg.Title); err != nil {
		return fmt.Errorf("upserting conversation meta: %w", err)
	}
	return nil
}

const listConversationsSQL = `
SELECT m.conversation_id,
       COALESCE(cm.title, '')   AS title,
       COALESCE(cm.summary, '') AS summary,
       COUNT(*)                 AS message_count,
       MAX(m.created_at)        AS last_message_at
FROM messages m
LEFT JOIN conversation_meta cm ON cm.conversation_id = m.conversation_id
GROUP BY m.conversation_id, cm.title, cm.summary
ORDER BY last_message_at DESC
LIMIT $1 OFFSET $2`

// ListConversations returns conversations with meta and message counts,
// most recently active first.
func (q *Queries) ListConversations(ctx context.Context, limit, offset int32) ([]Conversation, error) {
	rows, err := q.db.Query(ctx, listConversationsSQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var conversations []Conversation
	for rows.Next() {
		var (
			id      pgtype.UUID
			c       Conversation
			lastAt  pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &c.Title, &c.Summary, &c.MessageCount, &lastAt); err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}
		c.ID = pgUUIDToUUID(id)
		c.LastMessageAt = lastAt.Time
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation rows: %w", err)
	}
	return conversations, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encoding message metadata: %w", err)
	}
	return data, nil
}

// scanMessage reads one message row; works for pgx.Row and pgx.Rows.
func scanMessage(row interface{ Scan(dest ...any) error }) (Message, error) {
	var (
		id       pgtype.UUID
		convID   pgtype.UUID
		role     string
		content  string
		metadata []byte
		seq      int32
		created  pgtype.Timestamptz
	)
	if err := row.Scan(&id, &convID, &role, &content, &metadata, &seq, &created); err != nil {
		return Message{}, fmt.Errorf("scanning message row: %w", err)
	}

	msg := Message{
		ID:             pgUUIDToUUID(id),
		ConversationID: pgUUIDToUUID(convID),
		Role:           ParseRole(role),
		Content:        content,
		SequenceNumber: seq,
		CreatedAt:      created.Time,
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &msg.Metadata); err != nil {
			return Message{}, fmt.Errorf("decoding message metadata: %w", err)
		}
	}
	return msg, nil
}

func collectMessages(rows pgx.Rows) ([]Message, error) {
	var messages []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return messages, nil
}

func uuidToPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgUUIDToUUID(id pgtype.UUID) uuid.UUID {
	return uuid.UUID(id.Bytes)
}
