package chat

import "errors"

// Sentinel errors for ask validation. Conversation and knowledge
// availability failures reuse the sentinels of their owning packages:
// session.ErrConversationNotFound and knowledge.ErrUnavailable.
var (
	// ErrEmptyQuery rejects asks with no query text.
	ErrEmptyQuery = errors.New("query must not be empty")

	// ErrInvalidTopK rejects retrieval depths outside [1, MaxTopK].
	ErrInvalidTopK = errors.New("top_k out of range")

	// ErrMissingConversation rejects skip-user-message asks that name no
	// conversation to attach the reply to.
	ErrMissingConversation = errors.New("conversation id is required when the user message is already saved")

	// ErrInvalidConversation indicates the conversation id is not a UUID.
	ErrInvalidConversation = errors.New("invalid conversation id")
)
