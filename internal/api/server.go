package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kofiasare/sankofa/internal/chat"
	"github.com/kofiasare/sankofa/internal/log"
	"github.com/kofiasare/sankofa/internal/session"
)

// ChatService runs one ask exchange. *chat.Service satisfies it.
type ChatService interface {
	AskStream(ctx context.Context, req chat.Request, callback chat.StreamCallback) (*chat.Reply, error)
}

// ConversationStore is the slice of the session store the API serves.
// *session.Store satisfies it.
type ConversationStore interface {
	Append(ctx context.Context, conversationID uuid.UUID, role session.Role, content string, metadata map[string]any) (*session.Message, error)
	Exists(ctx context.Context, conversationID uuid.UUID) (bool, error)
	List(ctx context.Context, limit, offset int32) ([]session.Conversation, error)
	Messages(ctx context.Context, conversationID uuid.UUID, limit int32) ([]session.Message, error)
	Meta(ctx context.Context, conversationID uuid.UUID) (session.Meta, error)
}

// KnowledgeStore gates chat and indexing on vector backend readiness.
// *knowledge.Store satisfies it.
type KnowledgeStore interface {
	Ready(ctx context.Context) error
}

// Indexer ingests text submitted over the API. *rag.Indexer satisfies it.
type Indexer interface {
	AddText(ctx context.Context, text, title string) (int, error)
}

// Config contains everything needed to build the API server.
type Config struct {
	Logger    log.Logger
	Chat      ChatService       // required
	Sessions  ConversationStore // required
	Knowledge KnowledgeStore    // required
	Indexer   Indexer           // optional: nil disables POST /api/v1/documents
	Flow      *chat.Flow        // optional: nil disables POST /api/v1/flow/ask
	Pool      *pgxpool.Pool     // optional: nil skips the db ping in /ready

	CORSOrigins []string // origins allowed to call the API
	TrustProxy  bool     // trust X-Real-IP/X-Forwarded-For (behind a reverse proxy)
	RateBurst   int      // per-IP burst size, 0 = default 60
}

// Server is the JSON/SSE HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the API server with all routes and middleware wired.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Chat == nil {
		return nil, errors.New("chat service is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Knowledge == nil {
		return nil, errors.New("knowledge store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ch := &chatHandler{
		chat:      cfg.Chat,
		sessions:  cfg.Sessions,
		knowledge: cfg.Knowledge,
		logger:    logger,
	}
	cv := &conversationsHandler{store: cfg.Sessions, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/chat", ch.newChat)
	mux.HandleFunc("POST /api/v1/chat/{id}", ch.continueChat)
	mux.HandleFunc("GET /api/v1/conversations", cv.list)
	mux.HandleFunc("GET /api/v1/conversations/{id}/messages", cv.messages)

	if cfg.Indexer != nil {
		dh := &documentsHandler{
			indexer:   cfg.Indexer,
			knowledge: cfg.Knowledge,
			logger:    logger,
		}
		mux.HandleFunc("POST /api/v1/documents", dh.create)
	} else {
		logger.Warn("indexer not configured, document submission disabled")
	}

	// Genkit-native batch endpoint for the ask flow, used by the genkit
	// CLI and flow tooling. The interactive routes above stay the
	// primary surface.
	if cfg.Flow != nil {
		mux.Handle("POST /api/v1/flow/ask", genkit.Handler(cfg.Flow))
	}

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = defaultRateBurst
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack, outermost first:
	//   Recovery -> RequestID -> Logging -> CORS -> RateLimit -> Routes
	// RequestID runs before Logging so request_id shows up in log lines.
	// CORS runs before RateLimit so rejected preflights still carry CORS
	// headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w)
		handler.ServeHTTP(w, r)
	})

	// Health probes stay outside the middleware stack so load balancers
	// never hit the rate limiter.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool, cfg.Knowledge, logger))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
