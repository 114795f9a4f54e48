package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kofiasare/sankofa/internal/llm"
	"github.com/kofiasare/sankofa/internal/session"
)

// Context is everything the orchestrator knows about an ongoing
// conversation before answering the next query.
type Context struct {
	Summary string
	Title   string
	Window  []llm.Message
}

// Assemble gathers the conversation context for a new turn. Stored summary
// and title are reused when present; missing ones are generated on the
// spot. The window is always read fresh so the latest turns are included.
func (m *Manager) Assemble(ctx context.Context, conversationID uuid.UUID) (*Context, error) {
	var out Context

	meta, err := m.store.Meta(ctx, conversationID)
	switch {
	case err == nil:
		out.Summary = meta.Summary
		out.Title = meta.Title
	case errors.Is(err, session.ErrMetaNotFound):
	default:
		return nil, fmt.Errorf("loading conversation meta: %w", err)
	}

	if out.Title == "" {
		title, err := m.GenerateTitle(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		out.Title = title
	}
	if out.Summary == "" {
		summary, err := m.Summarize(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		out.Summary = summary
	}

	window, err := m.Window(ctx, conversationID, m.window)
	if err != nil {
		return nil, err
	}
	out.Window = window

	return &out, nil
}
