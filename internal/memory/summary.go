package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kofiasare/sankofa/internal/llm"
	"github.com/kofiasare/sankofa/internal/session"
)

// summaryTranscriptLimit caps how much history the summarizer sees per run.
// The summary still tracks the whole conversation because it is regenerated
// after every exchange, so older turns were folded in on earlier runs.
const summaryTranscriptLimit = 10

const summaryTemperature = 0.3

const summarySystem = "You are a helpful assistant that summarizes conversations in one short sentence."

// %s placeholder: formatted transcript.
const summaryPrompt = `Provide a ONE SENTENCE summary (maximum 1 sentence) of the following conversation.
Focus on the main message meaning and intent.

Conversation:
%s

Summary (one sentence only):`

// Summarize regenerates the rolling summary for a conversation and stores
// it. It returns the empty string without touching storage when the
// conversation has no messages or the model produced nothing usable.
func (m *Manager) Summarize(ctx context.Context, conversationID uuid.UUID) (string, error) {
	msgs, err := m.store.Messages(ctx, conversationID, 0)
	if err != nil {
		return "", fmt.Errorf("loading messages for summary: %w", err)
	}
	if len(msgs) == 0 {
		return "", nil
	}
	if len(msgs) > summaryTranscriptLimit {
		msgs = msgs[len(msgs)-summaryTranscriptLimit:]
	}

	raw, err := m.client.Generate(ctx, llm.Request{
		System:      summarySystem,
		Prompt:      fmt.Sprintf(summaryPrompt, formatTranscript(msgs)),
		Temperature: summaryTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("generating summary: %w", err)
	}

	summary := firstSentence(stripQuotes(raw))
	if summary == "" {
		return "", nil
	}
	if err := m.store.SetSummary(ctx, conversationID, summary); err != nil {
		return "", fmt.Errorf("saving summary: %w", err)
	}

	m.logger.Debug("conversation summary updated",
		"conversation_id", conversationID,
		"length", len(summary))
	return summary, nil
}

// formatTranscript renders messages as "Role: content" blocks separated by
// blank lines.
func formatTranscript(msgs []session.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role.Display(), msg.Content))
	}
	return strings.Join(lines, "\n\n")
}

// stripQuotes removes surrounding whitespace and the quote characters
// models sometimes wrap short outputs in.
func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	s = strings.Trim(s, "'")
	return strings.TrimSpace(s)
}

// firstSentence cuts a multi-sentence reply down to its first sentence.
func firstSentence(s string) string {
	head, _, found := strings.Cut(s, ". ")
	if !found {
		return s
	}
	return head + "."
}
