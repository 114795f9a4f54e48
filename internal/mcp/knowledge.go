package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kofiasare/sankofa/internal/knowledge"
	"github.com/kofiasare/sankofa/internal/rag"
)

// maxSearchTopK caps how many chunks a single search may request.
const maxSearchTopK = 20

// SearchHeritageInput defines input for the search_heritage tool.
type SearchHeritageInput struct {
	Query      string `json:"query" jsonschema:"The search query in English or Ga"`
	TopK       int    `json:"top_k,omitempty" jsonschema:"Maximum chunks to return (default 5 and at most 20)"`
	SourceType string `json:"source_type,omitempty" jsonschema:"Restrict results to one source type such as document or text"`
}

// IndexDocumentInput defines input for the index_document tool.
type IndexDocumentInput struct {
	Title string `json:"title,omitempty" jsonschema:"Short title for the document"`
	Text  string `json:"text" jsonschema:"The document text to chunk and embed"`
}

func (s *Server) registerSearchHeritage() error {
	schema, err := jsonschema.For[SearchHeritageInput](nil)
	if err != nil {
		return fmt.Errorf("schema for search_heritage: %w", err)
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "search_heritage",
		Description: "Search the Ga heritage knowledge base using semantic similarity. " +
			"Returns the most relevant indexed chunks with their scores.",
		InputSchema: schema,
	}, s.SearchHeritage)
	return nil
}

func (s *Server) registerIndexDocument() error {
	schema, err := jsonschema.For[IndexDocumentInput](nil)
	if err != nil {
		return fmt.Errorf("schema for index_document: %w", err)
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "index_document",
		Description: "Add a document to the heritage knowledge base. " +
			"The text is chunked and embedded and becomes searchable immediately.",
		InputSchema: schema,
	}, s.IndexDocument)
	return nil
}

// SearchHeritage handles the search_heritage MCP tool call.
func (s *Server) SearchHeritage(ctx context.Context, _ *mcp.CallToolRequest, in SearchHeritageInput) (*mcp.CallToolResult, any, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return errorResult("query is required"), nil, nil
	}

	var opts []rag.RetrieveOption
	if in.TopK > 0 {
		opts = append(opts, rag.WithTopK(min(in.TopK, maxSearchTopK)))
	}
	if sourceType := strings.TrimSpace(in.SourceType); sourceType != "" {
		opts = append(opts, rag.WithFilter("source_type", sourceType))
	}

	results, err := s.retriever.Retrieve(ctx, query, opts...)
	if err != nil {
		s.logger.Warn("mcp search failed", "error", err)
		if errors.Is(err, knowledge.ErrUnavailable) {
			return errorResult("knowledge base unavailable"), nil, nil
		}
		return errorResult("search failed"), nil, nil
	}
	if len(results) == 0 {
		return textResult("No matching chunks found."), nil, nil
	}
	return textResult(rag.FormatContext(results)), nil, nil
}

// IndexDocument handles the index_document MCP tool call.
func (s *Server) IndexDocument(ctx context.Context, _ *mcp.CallToolRequest, in IndexDocumentInput) (*mcp.CallToolResult, any, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return errorResult("text is required"), nil, nil
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "untitled"
	}

	chunks, err := s.indexer.AddText(ctx, text, title)
	if err != nil {
		s.logger.Warn("mcp indexing failed", "title", title, "error", err)
		if errors.Is(err, knowledge.ErrUnavailable) {
			return errorResult("knowledge base unavailable"), nil, nil
		}
		return errorResult("indexing failed"), nil, nil
	}
	return textResult(fmt.Sprintf("Indexed %q as %d chunks.", title, chunks)), nil, nil
}
