// Package cmd provides the sankofa command line interface.
//
// Commands:
//   - serve: HTTP API server with SSE streaming
//   - ask: one-shot question with a markdown-rendered answer
//   - index: ingest a file or directory into the knowledge base
//   - conversations: list stored conversations
//   - mcp: Model Context Protocol server for editor integration
//
// Long-running commands install SIGINT/SIGTERM handlers and shut down
// via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kofiasare/sankofa/internal/log"
)

// Execute is the entry point for the sankofa CLI.
func Execute() error {
	// One logger for the whole process, to stderr. Stdout stays clean
	// for command output and MCP JSON-RPC.
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level})
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe(logger)
	case "ask":
		return runAsk(logger)
	case "index":
		return runIndex(logger)
	case "conversations":
		return runConversations(logger)
	case "mcp":
		return runMCP(logger)
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("Sankofa - Ga heritage assistant")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sankofa serve [addr]        Start HTTP API server (default: 127.0.0.1:8080)")
	fmt.Println("  sankofa ask \"question\"      Ask one question and print the answer")
	fmt.Println("      -k <n>                  Retrieval depth override")
	fmt.Println("      -c <conversation-id>    Continue a specific conversation")
	fmt.Println("  sankofa index <path>        Index a file or directory into the knowledge base")
	fmt.Println("  sankofa conversations       List stored conversations")
	fmt.Println("  sankofa mcp                 Start MCP server (stdio, for Claude Code/Cursor)")
	fmt.Println("  sankofa --version           Show version information")
	fmt.Println("  sankofa --help              Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY              Gemini API key (gemini and openrouter providers)")
	fmt.Println("  DATABASE_URL                Postgres connection string override")
	fmt.Println("  DEBUG                       Enable debug logging")
	fmt.Println()
	fmt.Println("Configuration is read from ~/.sankofa/config.yaml.")
}
