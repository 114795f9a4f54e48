// Package session persists conversations: message history and per-conversation
// meta (rolling summary, title).
//
// A conversation has no row of its own. It exists once its first message does,
// keyed by conversation_id, and that id is the sole join key to
// conversation_meta. Store allocates the id on the first append when the
// caller supplies none.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Role classifies a message author. The set is closed; anything read from
// storage that is not a known role normalizes to RoleUser.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ParseRole maps a stored role string to a Role. Unknown values fall back
// to RoleUser rather than failing.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleUser:
		return RoleUser
	case RoleAssistant:
		return RoleAssistant
	case RoleSystem:
		return RoleSystem
	default:
		return RoleUser
	}
}

// Display returns the capitalized form used when formatting transcripts
// for prompts ("User: ...", "Assistant: ...").
func (r Role) Display() string {
	switch r {
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return "User"
	}
}

// Message is one conversation turn. Immutable once written.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Role           Role
	Content        string
	Metadata       map[string]any
	SequenceNumber int32
	CreatedAt      time.Time
}

// Meta holds the rolling summary and title for a conversation.
type Meta struct {
	ConversationID uuid.UUID
	Summary        string
	Title          string
	UpdatedAt      time.Time
}

// Conversation is a listing row: meta joined with message statistics.
type Conversation struct {
	ID            uuid.UUID
	Title         string
	Summary       string
	MessageCount  int64
	LastMessageAt time.Time
}
