package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kofiasare/sankofa/internal/log"
)

const readinessTimeout = 5 * time.Second

// health reports process liveness for container probes.
func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
}

// readiness reports whether the server can actually answer: the database
// must respond to a ping and the knowledge store must be ready. A nil
// pool skips the ping (tests without a database).
func readiness(pool *pgxpool.Pool, knowledge KnowledgeStore, logger log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database unreachable", logger)
				return
			}
		}
		if err := knowledge.Ready(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "knowledge_unavailable", "knowledge store not ready", logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"}, logger)
	})
}
