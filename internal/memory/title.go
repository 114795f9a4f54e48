package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kofiasare/sankofa/internal/llm"
	"github.com/kofiasare/sankofa/internal/session"
)

// titleMessageLimit bounds how much of the opening exchange the titler
// reads. Six messages is enough to find the first question and answer.
const titleMessageLimit = 6

const titleTemperature = 0.7

// titleMaxWords caps stored titles. Model replies longer than this are cut.
const titleMaxWords = 8

const (
	titleQueryLimit    = 200
	titleResponseLimit = 300
)

const titleSystem = "You are a helpful assistant that generates short, descriptive titles for Ga ↔ English translation conversations. Titles must reflect the actual translation or explanation that occurred."

// %s placeholders: (1) user query, (2) assistant response.
const titlePrompt = `Generate a SHORT, descriptive title (3-6 words) for this Ga ↔ English translation conversation.

The title MUST reflect:
- The language direction (Ga → English or English → Ga)
- What was actually translated or explained
- The type of content (greeting, phrase, word, expression, etc.)

Examples of good titles:
- "Ga Greeting Translation to English"
- "English to Ga Love Phrase Translation"
- "Meaning of Ga Expression Explained"
- "Ga Word Translation Request"

User Query:
%s

Assistant Response:
%s

Generate a title (3-6 words, descriptive of the actual translation/exchange):`

// GenerateTitle derives a short title from the opening exchange and stores
// it. It returns the empty string without touching storage when the
// conversation has no messages or the model produced nothing usable.
func (m *Manager) GenerateTitle(ctx context.Context, conversationID uuid.UUID) (string, error) {
	msgs, err := m.store.Messages(ctx, conversationID, titleMessageLimit)
	if err != nil {
		return "", fmt.Errorf("loading messages for title: %w", err)
	}
	if len(msgs) == 0 {
		return "", nil
	}

	var query, response string
	for _, msg := range msgs {
		switch {
		case msg.Role == session.RoleUser && query == "":
			query = msg.Content
		case msg.Role == session.RoleAssistant && response == "":
			response = msg.Content
		}
		if query != "" && response != "" {
			break
		}
	}
	// Fall back to positional picks when the roles we want are missing.
	if query == "" {
		query = msgs[0].Content
	}
	if response == "" && len(msgs) > 1 {
		response = msgs[1].Content
	}

	raw, err := m.client.Generate(ctx, llm.Request{
		System: titleSystem,
		Prompt: fmt.Sprintf(titlePrompt,
			truncateRunes(query, titleQueryLimit),
			truncateRunes(response, titleResponseLimit)),
		Temperature: titleTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("generating title: %w", err)
	}

	title := clampWords(stripQuotes(raw), titleMaxWords)
	if title == "" {
		return "", nil
	}
	if err := m.store.SetTitle(ctx, conversationID, title); err != nil {
		return "", fmt.Errorf("saving title: %w", err)
	}

	m.logger.Debug("conversation title updated",
		"conversation_id", conversationID,
		"title", title)
	return title, nil
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// clampWords keeps at most n whitespace-separated words.
func clampWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ")
}
