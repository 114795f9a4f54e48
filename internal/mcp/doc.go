// Package mcp exposes the retrieval pipeline over the Model Context
// Protocol, so MCP clients (Claude Code, Cursor, the Genkit CLI) can
// search and grow the heritage knowledge base directly.
//
// Three tools are registered:
//
//   - search_heritage: semantic search over indexed chunks, optionally
//     filtered by source type
//   - index_document: chunk and embed raw text into the knowledge base
//   - list_conversations: page through stored conversation summaries
//
// Handlers follow the typed mcp.AddTool pattern: an input struct with a
// jsonschema-derived schema and direct result construction. Failures the
// client should see (bad input, backend down) come back as IsError
// results rather than protocol errors, so the session survives and the
// model can react. The transport is chosen by the caller; the CLI runs
// stdio.
package mcp
