package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	defaultConversationLimit = 20
	maxConversationLimit     = 100
)

// ListConversationsInput defines input for the list_conversations tool.
type ListConversationsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum conversations to return (default 20 and at most 100)"`
}

// conversationSummary is the JSON shape returned per conversation.
type conversationSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	MessageCount  int64     `json:"messageCount"`
	LastMessageAt time.Time `json:"lastMessageAt"`
}

func (s *Server) registerListConversations() error {
	schema, err := jsonschema.For[ListConversationsInput](nil)
	if err != nil {
		return fmt.Errorf("schema for list_conversations: %w", err)
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "list_conversations",
		Description: "List stored conversations, most recently active first. " +
			"Returns id, title, message count and last activity as JSON.",
		InputSchema: schema,
	}, s.ListConversations)
	return nil
}

// ListConversations handles the list_conversations MCP tool call.
func (s *Server) ListConversations(ctx context.Context, _ *mcp.CallToolRequest, in ListConversationsInput) (*mcp.CallToolResult, any, error) {
	limit := in.Limit
	if limit < 1 {
		limit = defaultConversationLimit
	}
	if limit > maxConversationLimit {
		limit = maxConversationLimit
	}

	conversations, err := s.conversations.List(ctx, int32(limit), 0)
	if err != nil {
		s.logger.Warn("mcp listing conversations failed", "error", err)
		return errorResult("listing conversations failed"), nil, nil
	}

	summaries := make([]conversationSummary, 0, len(conversations))
	for _, c := range conversations {
		summaries = append(summaries, conversationSummary{
			ID:            c.ID.String(),
			Title:         c.Title,
			MessageCount:  c.MessageCount,
			LastMessageAt: c.LastMessageAt,
		})
	}
	return jsonResult(summaries), nil, nil
}
