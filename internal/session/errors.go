package session

import "errors"

var (
	// ErrConversationNotFound indicates the conversation has no messages.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrMetaNotFound indicates no meta row exists for the conversation yet.
	ErrMetaNotFound = errors.New("conversation meta not found")

	// ErrEmptyContent indicates an append with empty message content.
	ErrEmptyContent = errors.New("message content is empty")
)
