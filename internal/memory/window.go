package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kofiasare/sankofa/internal/llm"
	"github.com/kofiasare/sankofa/internal/session"
)

// Window returns the last size messages of the conversation, oldest first,
// mapped to prompt roles. Assistant turns keep their role; every other
// stored role, system included, becomes a user turn so providers that only
// model user/assistant history handle them uniformly.
func (m *Manager) Window(ctx context.Context, conversationID uuid.UUID, size int32) ([]llm.Message, error) {
	msgs, err := m.store.Recent(ctx, conversationID, size)
	if err != nil {
		return nil, fmt.Errorf("loading memory window: %w", err)
	}

	window := make([]llm.Message, 0, len(msgs))
	for _, msg := range msgs {
		role := llm.RoleUser
		if msg.Role == session.RoleAssistant {
			role = llm.RoleAssistant
		}
		window = append(window, llm.Message{Role: role, Content: msg.Content})
	}
	return window, nil
}
