// Package chat sequences one question-and-answer exchange: persist the
// user turn, assemble conversation context, retrieve indexed knowledge,
// build the prompt, generate (batch or streaming), persist the reply,
// and refresh the conversation summary and title.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kofiasare/sankofa/internal/knowledge"
	"github.com/kofiasare/sankofa/internal/llm"
	"github.com/kofiasare/sankofa/internal/log"
	"github.com/kofiasare/sankofa/internal/memory"
	"github.com/kofiasare/sankofa/internal/rag"
	"github.com/kofiasare/sankofa/internal/session"
)

const (
	// DefaultTopK is the retrieval depth when a request does not set one.
	DefaultTopK = 5

	// MaxTopK bounds how many chunks a single ask may request.
	MaxTopK = 20

	// generationTemperature is used for the main reply.
	generationTemperature = 0.7

	// fallbackResponseMessage replaces an empty model reply so the
	// assistant turn can still be persisted.
	fallbackResponseMessage = "I apologize, but I couldn't generate a response. Please try rephrasing your question."
)

// StreamCallback receives each text chunk as it is generated. Returning
// an error aborts the stream and fails the ask.
type StreamCallback func(ctx context.Context, chunk string) error

// SessionStore is the slice of the session store the pipeline touches.
type SessionStore interface {
	Append(ctx context.Context, conversationID uuid.UUID, role session.Role, content string, metadata map[string]any) (*session.Message, error)
	Exists(ctx context.Context, conversationID uuid.UUID) (bool, error)
}

// Knowledge gates the pipeline on vector backend readiness.
type Knowledge interface {
	Ready(ctx context.Context) error
}

// Retriever finds relevant chunks for a query. *rag.Retriever satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts ...rag.RetrieveOption) ([]knowledge.Result, error)
}

// Memory supplies conversation context and refreshes its derivatives.
// *memory.Manager satisfies it.
type Memory interface {
	Assemble(ctx context.Context, conversationID uuid.UUID) (*memory.Context, error)
	Summarize(ctx context.Context, conversationID uuid.UUID) (string, error)
	GenerateTitle(ctx context.Context, conversationID uuid.UUID) (string, error)
}

// Config contains the collaborators for the ask pipeline.
type Config struct {
	Sessions  SessionStore
	Knowledge Knowledge
	Retriever Retriever
	LLM       llm.Client
	Memory    Memory
	Logger    log.Logger

	// TopK is the default retrieval depth. Zero means DefaultTopK.
	TopK int
}

func (cfg Config) validate() error {
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	if cfg.Knowledge == nil {
		return errors.New("knowledge store is required")
	}
	if cfg.Retriever == nil {
		return errors.New("retriever is required")
	}
	if cfg.LLM == nil {
		return errors.New("llm client is required")
	}
	if cfg.Memory == nil {
		return errors.New("memory manager is required")
	}
	if cfg.TopK < 0 || cfg.TopK > MaxTopK {
		return fmt.Errorf("%w: configured default %d", ErrInvalidTopK, cfg.TopK)
	}
	return nil
}

// Service runs the ask pipeline. It is stateless across requests; all
// dependencies are injected once at construction and shared read-only.
type Service struct {
	sessions  SessionStore
	knowledge Knowledge
	retriever Retriever
	llm       llm.Client
	memory    Memory
	logger    log.Logger
	topK      int
}

func New(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	topK := cfg.TopK
	if topK == 0 {
		topK = DefaultTopK
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Service{
		sessions:  cfg.Sessions,
		knowledge: cfg.Knowledge,
		retriever: cfg.Retriever,
		llm:       cfg.LLM,
		memory:    cfg.Memory,
		logger:    logger,
		topK:      topK,
	}, nil
}

// Request is one ask invocation.
type Request struct {
	Query string

	// ConversationID continues an existing conversation. Zero starts a
	// new one; the store allocates the id.
	ConversationID uuid.UUID

	// TopK overrides the configured retrieval depth. Zero keeps it.
	TopK int

	// SkipUserMessage suppresses step 1 when the caller already
	// persisted the user turn. Requires ConversationID.
	SkipUserMessage bool
}

// Reply is the completed exchange.
type Reply struct {
	Text           string
	ConversationID uuid.UUID
}

// Ask runs the pipeline without streaming and returns the full reply.
func (s *Service) Ask(ctx context.Context, req Request) (*Reply, error) {
	return s.AskStream(ctx, req, nil)
}

// AskStream runs the ask pipeline. When callback is non-nil each
// generated chunk is forwarded as it arrives; the complete reply is
// returned in both modes once generation finishes. If the context is
// canceled mid-stream, generation fails and nothing past it runs: no
// partial assistant turn is persisted.
func (s *Service) AskStream(ctx context.Context, req Request, callback StreamCallback) (*Reply, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}
	topK := req.TopK
	if topK == 0 {
		topK = s.topK
	}
	if topK < 1 || topK > MaxTopK {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, req.TopK)
	}
	if req.SkipUserMessage && req.ConversationID == uuid.Nil {
		return nil, ErrMissingConversation
	}

	// Continuing a conversation requires that it exists. Checked before
	// anything persists so a bad id has no side effects.
	if req.ConversationID != uuid.Nil {
		exists, err := s.sessions.Exists(ctx, req.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("checking conversation: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", session.ErrConversationNotFound, req.ConversationID)
		}
	}

	// The readiness gate also runs before any write.
	if err := s.knowledge.Ready(ctx); err != nil {
		return nil, err
	}

	conversationID := req.ConversationID

	// Step 1: persist the user turn. The store allocates a conversation
	// id when the caller supplied none; that id is authoritative from
	// here on.
	if !req.SkipUserMessage {
		saved, err := s.sessions.Append(ctx, conversationID, session.RoleUser, req.Query, nil)
		if err != nil {
			return nil, fmt.Errorf("saving user message: %w", err)
		}
		conversationID = saved.ConversationID
	}

	// Step 2: conversation context (summary, title, memory window).
	memCtx, err := s.memory.Assemble(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("assembling conversation context: %w", err)
	}

	// Step 3: retrieval. Per-variant failures already degraded to "no
	// results" inside the retriever; only cancellation surfaces here.
	results, err := s.retriever.Retrieve(ctx, req.Query, rag.WithTopK(topK))
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}
	contextText := rag.FormatContext(results)
	hasContext := len(results) > 0 && strings.TrimSpace(contextText) != ""

	s.logger.Debug("ask pipeline assembled",
		"conversation_id", conversationID,
		"chunks", len(results),
		"has_indexed_context", hasContext,
		"window", len(memCtx.Window),
		"streaming", callback != nil)

	// Steps 4 and 5: build the prompt and generate.
	genReq := llm.Request{
		System:      buildSystem(memCtx.Summary, contextText, hasContext),
		History:     memCtx.Window,
		Prompt:      req.Query,
		Temperature: generationTemperature,
	}

	var text string
	if callback != nil {
		text, err = s.llm.GenerateStream(ctx, genReq, llm.StreamCallback(callback))
	} else {
		text, err = s.llm.Generate(ctx, genReq)
	}
	if err != nil {
		return nil, fmt.Errorf("generating response: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		s.logger.Warn("model returned an empty response", "conversation_id", conversationID)
		text = fallbackResponseMessage
	}

	// Step 6: persist the assistant turn.
	if _, err := s.sessions.Append(ctx, conversationID, session.RoleAssistant, text, nil); err != nil {
		return nil, fmt.Errorf("saving assistant message: %w", err)
	}

	// Step 7: refresh the summary and title so they track this exchange.
	// Best-effort: the reply already reached the caller.
	if _, err := s.memory.Summarize(ctx, conversationID); err != nil {
		s.logger.Warn("summary refresh failed",
			"conversation_id", conversationID, "error", err)
	}
	if _, err := s.memory.GenerateTitle(ctx, conversationID); err != nil {
		s.logger.Warn("title refresh failed",
			"conversation_id", conversationID, "error", err)
	}

	return &Reply{Text: text, ConversationID: conversationID}, nil
}
