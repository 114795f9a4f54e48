// Package memory derives conversational context from stored history: a
// bounded window of recent messages for prompting, a rolling one-sentence
// summary, and a short descriptive title. Summary and title are generated
// with the LLM and persisted on the conversation meta so later turns can
// reuse them instead of regenerating.
package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/kofiasare/sankofa/internal/llm"
	"github.com/kofiasare/sankofa/internal/log"
	"github.com/kofiasare/sankofa/internal/session"
)

// DefaultWindowSize is how many recent messages feed the prompt history.
const DefaultWindowSize = 10

// Store is the slice of the session store the memory layer reads and
// writes. *session.Store satisfies it.
type Store interface {
	Messages(ctx context.Context, conversationID uuid.UUID, limit int32) ([]session.Message, error)
	Recent(ctx context.Context, conversationID uuid.UUID, n int32) ([]session.Message, error)
	Meta(ctx context.Context, conversationID uuid.UUID) (session.Meta, error)
	SetSummary(ctx context.Context, conversationID uuid.UUID, summary string) error
	SetTitle(ctx context.Context, conversationID uuid.UUID, title string) error
}

// Manager generates and serves per-conversation context.
type Manager struct {
	store  Store
	client llm.Client
	logger log.Logger
	window int32
}

// Option configures a Manager.
type Option func(*Manager)

// WithWindowSize overrides how many recent messages Assemble loads.
// Values below one keep the default.
func WithWindowSize(n int) Option {
	return func(m *Manager) {
		if n >= 1 {
			m.window = int32(n)
		}
	}
}

func NewManager(store Store, client llm.Client, logger log.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = log.NewNop()
	}
	m := &Manager{store: store, client: client, logger: logger, window: DefaultWindowSize}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
