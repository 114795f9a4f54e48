package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kofiasare/sankofa/internal/knowledge"
	"github.com/kofiasare/sankofa/internal/log"
	"github.com/kofiasare/sankofa/internal/rag"
	"github.com/kofiasare/sankofa/internal/session"
)

// Retriever finds knowledge chunks relevant to a query. *rag.Retriever
// satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts ...rag.RetrieveOption) ([]knowledge.Result, error)
}

// Indexer chunks and embeds raw text into the knowledge base.
// *rag.Indexer satisfies it.
type Indexer interface {
	AddText(ctx context.Context, text, title string) (int, error)
}

// ConversationStore pages through stored conversations. *session.Store
// satisfies it.
type ConversationStore interface {
	List(ctx context.Context, limit, offset int32) ([]session.Conversation, error)
}

// Config carries the server identity and the pipeline pieces the tools
// call into. All dependencies are required.
type Config struct {
	Name    string
	Version string
	Logger  log.Logger

	Retriever     Retriever
	Indexer       Indexer
	Conversations ConversationStore
}

func (c Config) validate() error {
	if c.Name == "" {
		return errors.New("server name is required")
	}
	if c.Version == "" {
		return errors.New("server version is required")
	}
	if c.Retriever == nil {
		return errors.New("retriever is required")
	}
	if c.Indexer == nil {
		return errors.New("indexer is required")
	}
	if c.Conversations == nil {
		return errors.New("conversation store is required")
	}
	return nil
}

// Server wraps the MCP SDK server with the registered heritage tools.
type Server struct {
	name      string
	version   string
	logger    log.Logger
	mcpServer *mcp.Server

	retriever     Retriever
	indexer       Indexer
	conversations ConversationStore
}

// NewServer builds an MCP server and registers all tools.
func NewServer(cfg Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	s := &Server{
		name:          cfg.Name,
		version:       cfg.Version,
		logger:        logger,
		retriever:     cfg.Retriever,
		indexer:       cfg.Indexer,
		conversations: cfg.Conversations,
	}
	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if err := s.registerTools(); err != nil {
		return nil, err
	}
	return s, nil
}

// Run serves MCP requests over transport until ctx is canceled or the
// client disconnects.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info("mcp server starting", "name", s.name, "version", s.version)
	return s.mcpServer.Run(ctx, transport)
}

func (s *Server) registerTools() error {
	if err := s.registerSearchHeritage(); err != nil {
		return err
	}
	if err := s.registerIndexDocument(); err != nil {
		return err
	}
	return s.registerListConversations()
}
