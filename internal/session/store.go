package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kofiasare/sankofa/internal/log"
)

// Querier is the data access surface Store depends on. *Queries satisfies
// it; tests substitute mocks.
type Querier interface {
	InsertMessage(ctx context.Context, arg InsertMessageParams) (Message, error)
	MaxSequenceNumber(ctx context.Context, conversationID uuid.UUID) (int32, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit int32) ([]Message, error)
	ListRecentMessages(ctx context.Context, conversationID uuid.UUID, limit int32) ([]Message, error)
	HasMessages(ctx context.Context, conversationID uuid.UUID) (bool, error)
	GetMeta(ctx context.Context, conversationID uuid.UUID) (Meta, error)
	UpsertMeta(ctx context.Context, arg UpsertMetaParams) error
	ListConversations(ctx context.Context, limit, offset int32) ([]Conversation, error)
}

// Store persists conversation messages and meta.
type Store struct {
	querier Querier
	pool    *pgxpool.Pool
	logger  log.Logger
}

// New creates a Store. pool may be nil in tests; Append then runs without a
// transaction.
func New(querier Querier, pool *pgxpool.Pool, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		querier: querier,
		pool:    pool,
		logger:  logger,
	}
}

// Append adds one message to the conversation and returns it as stored.
// A zero conversationID allocates a new conversation; the returned message
// carries the id to use for follow-up turns. Sequence numbers are allocated
// under an advisory lock so concurrent appends to the same conversation
// never collide.
func (s *Store) Append(ctx context.Context, conversationID uuid.UUID, role Role, content string, metadata map[string]any) (*Message, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	if conversationID == uuid.Nil {
		conversationID = uuid.New()
	}

	if s.pool == nil {
		return s.appendWith(ctx, s.querier, nil, conversationID, role, content, metadata)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning append transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Debug("append rollback", "error", rbErr)
		}
	}()

	txQueries := NewQueries(tx)
	msg, err := s.appendWith(ctx, txQueries, txQueries, conversationID, role, content, metadata)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing append transaction: %w", err)
	}

	s.logger.Debug("message appended",
		"conversation_id", conversationID,
		"role", role,
		"sequence_number", msg.SequenceNumber,
	)
	return msg, nil
}

// appendWith runs the sequence allocation and insert against q. locker is
// the transaction-scoped Queries when appending transactionally, nil
// otherwise.
func (s *Store) appendWith(ctx context.Context, q Querier, locker *Queries, conversationID uuid.UUID, role Role, content string, metadata map[string]any) (*Message, error) {
	if locker != nil {
		if err := locker.LockConversation(ctx, conversationID); err != nil {
			return nil, err
		}
	}

	maxSeq, err := q.MaxSequenceNumber(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	msg, err := q.InsertMessage(ctx, InsertMessageParams{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Metadata:       metadata,
		SequenceNumber: maxSeq + 1,
	})
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}
	return &msg, nil
}

// Messages returns the conversation ascending by sequence. limit 0 means
// all messages.
func (s *Store) Messages(ctx context.Context, conversationID uuid.UUID, limit int32) ([]Message, error) {
	if limit < 0 {
		limit = 0
	}
	return s.querier.ListMessages(ctx, conversationID, limit)
}

// Recent returns the last n messages, oldest first. n <= 0 returns nil.
func (s *Store) Recent(ctx context.Context, conversationID uuid.UUID, n int32) ([]Message, error) {
	if n <= 0 {
		return nil, nil
	}
	return s.querier.ListRecentMessages(ctx, conversationID, n)
}

// Exists reports whether the conversation has any messages. A conversation
// exists exactly when its first message has been stored.
func (s *Store) Exists(ctx context.Context, conversationID uuid.UUID) (bool, error) {
	return s.querier.HasMessages(ctx, conversationID)
}

// Meta returns the conversation summary and title, or ErrMetaNotFound when
// neither has been generated yet.
func (s *Store) Meta(ctx context.Context, conversationID uuid.UUID) (Meta, error) {
	return s.querier.GetMeta(ctx, conversationID)
}

// SetSummary writes the summary, preserving any stored title.
func (s *Store) SetSummary(ctx context.Context, conversationID uuid.UUID, summary string) error {
	return s.querier.UpsertMeta(ctx, UpsertMetaParams{
		ConversationID: conversationID,
		Summary:        &summary,
	})
}

// SetTitle writes the title, preserving any stored summary.
func (s *Store) SetTitle(ctx context.Context, conversationID uuid.UUID, title string) error {
	return s.querier.UpsertMeta(ctx, UpsertMetaParams{
		ConversationID: conversationID,
		Title:          &title,
	})
}

// List returns conversations most recently active first.
func (s *Store) List(ctx context.Context, limit, offset int32) ([]Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.querier.ListConversations(ctx, limit, offset)
}
