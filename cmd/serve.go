package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/kofiasare/sankofa/internal/api"
	"github.com/kofiasare/sankofa/internal/app"
	"github.com/kofiasare/sankofa/internal/config"
	"github.com/kofiasare/sankofa/internal/knowledge"
	"github.com/kofiasare/sankofa/internal/log"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute // SSE streaming needs longer timeout
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

// parseRateBurst reads SANKOFA_RATE_BURST from the environment.
// Returns 0 (use default) if unset or invalid.
func parseRateBurst() int {
	v := os.Getenv("SANKOFA_RATE_BURST")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// runServe initializes and starts the HTTP API server.
func runServe(logger log.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	addr, err := parseServeAddr(os.Args[2:])
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting HTTP API server", "version", Version)

	rt, err := app.NewRuntime(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()
	a := rt.App

	// First boot seeds the Ga primer so retrieval has a baseline before
	// any documents are indexed. An unreachable knowledge base is not
	// fatal here, the readiness probe reports it instead.
	if n, err := knowledge.NewSeeder(a.Knowledge, logger).Ensure(ctx); err != nil {
		logger.Warn("seeding primer documents", "error", err)
	} else if n > 0 {
		logger.Info("primer documents seeded", "count", n)
	}

	if a.Scheduler != nil {
		go a.Scheduler.Run(ctx)
	}

	apiServer, err := api.NewServer(api.Config{
		Logger:      logger,
		Chat:        a.Chat,
		Sessions:    a.Sessions,
		Knowledge:   a.Knowledge,
		Indexer:     a.Indexer,
		Flow:        rt.Flow,
		Pool:        a.Pool,
		CORSOrigins: cfg.CORSOrigins,
		TrustProxy:  cfg.TrustProxy,
		RateBurst:   parseRateBurst(),
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", addr,
		"api", "/api/v1/*",
		"health", "/health, /ready",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}
