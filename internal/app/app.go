// Package app assembles Sankofa's components into a running application.
//
// Setup builds the dependency graph in order: telemetry, database pool
// (with migrations), Genkit and its provider plugins, the embedder, the
// model client, then the stores and services layered on top. Each
// provide function owns one component; anything that acquires a
// resource registers a cleanup, and Close releases them in reverse
// order.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kofiasare/sankofa/internal/chat"
	"github.com/kofiasare/sankofa/internal/config"
	"github.com/kofiasare/sankofa/internal/knowledge"
	"github.com/kofiasare/sankofa/internal/llm"
	"github.com/kofiasare/sankofa/internal/log"
	"github.com/kofiasare/sankofa/internal/memory"
	"github.com/kofiasare/sankofa/internal/rag"
	"github.com/kofiasare/sankofa/internal/session"
)

// App is the application container. All fields are initialized by Setup
// and shared read-only afterwards.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Pool     *pgxpool.Pool

	Sessions  *session.Store
	Knowledge *knowledge.Store
	Retriever *rag.Retriever
	Indexer   *rag.Indexer
	Scheduler *rag.Scheduler // nil unless index_dir is configured
	LLM       llm.Client
	Memory    *memory.Manager
	Chat      *chat.Service

	cleanups []func()
}

// onClose registers a cleanup to run during Close. Cleanups run in
// reverse registration order, so resources release before the things
// they depend on.
func (a *App) onClose(fn func()) {
	a.cleanups = append(a.cleanups, fn)
}

// Close releases all resources acquired during Setup. Safe to call on a
// partially initialized App and idempotent.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
	return nil
}
