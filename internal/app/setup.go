package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/genai"

	"github.com/kofiasare/sankofa/db"
	"github.com/kofiasare/sankofa/internal/chat"
	"github.com/kofiasare/sankofa/internal/config"
	"github.com/kofiasare/sankofa/internal/knowledge"
	"github.com/kofiasare/sankofa/internal/llm"
	"github.com/kofiasare/sankofa/internal/log"
	"github.com/kofiasare/sankofa/internal/memory"
	"github.com/kofiasare/sankofa/internal/observability"
	"github.com/kofiasare/sankofa/internal/rag"
	"github.com/kofiasare/sankofa/internal/session"
)

// Setup creates and initializes the application. On failure everything
// already initialized is released before returning. A nil logger
// discards output.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = log.NewNop()
	}

	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Telemetry first so the span processor is attached before Genkit
	// starts tracing. Its cleanup runs last and flushes pending spans.
	a.onClose(provideTelemetry(ctx, cfg, logger))

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool
	a.onClose(pool.Close)

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder, err := provideEmbedder(g, cfg)
	if err != nil {
		return nil, err
	}
	a.Embedder = embedder

	client, err := provideLLM(g, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.LLM = client

	a.Sessions = session.New(session.NewQueries(pool), pool, logger)
	a.Knowledge = knowledge.New(knowledge.NewQueries(pool), embedder, logger, embedderStoreOptions(cfg)...)
	a.Retriever = rag.NewRetriever(a.Knowledge, logger)
	a.Memory = memory.NewManager(a.Sessions, a.LLM, logger,
		memory.WithWindowSize(config.NormalizeMemoryWindow(cfg.MemoryWindow)))

	svc, err := chat.New(chat.Config{
		Sessions:  a.Sessions,
		Knowledge: a.Knowledge,
		Retriever: a.Retriever,
		LLM:       a.LLM,
		Memory:    a.Memory,
		Logger:    logger,
		TopK:      cfg.RetrievalTopK,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat service: %w", err)
	}
	a.Chat = svc

	a.Indexer = rag.NewIndexer(a.Knowledge, nil, logger)
	if cfg.IndexDir != "" {
		a.Scheduler = rag.NewScheduler(a.Indexer, cfg.IndexDir, cfg.IndexInterval, logger)
	}

	return a, nil
}

// provideTelemetry attaches the OTLP exporter and returns the cleanup
// that flushes it. Never fails; a broken exporter just disables tracing.
func provideTelemetry(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	shutdown := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.Telemetry.Endpoint,
		Environment: cfg.Telemetry.Environment,
		ServiceName: cfg.Telemetry.ServiceName,
	}, logger)

	return func() {
		// Independent context: cleanup runs during teardown when the
		// parent is already canceled.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and creates the PostgreSQL connection
// pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the provider plugin. The ollama
// provider registers its chat model and embedder explicitly (no
// auto-discovery); gemini and openrouter both load the googlegenai
// plugin, the latter for embeddings only.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		plugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g := genkit.Init(ctx, genkit.WithPlugins(plugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		plugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		plugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)
		return g, nil

	case config.ProviderOpenRouter:
		// Chat goes straight to OpenRouter, but the knowledge store
		// still embeds through Gemini.
		if os.Getenv("GEMINI_API_KEY") == "" {
			return nil, fmt.Errorf("%w: GEMINI_API_KEY is required for embeddings with the openrouter provider", config.ErrMissingAPIKey)
		}
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with googleai plugin")
		}
		logger.Info("initialized genkit with openrouter provider",
			"model", cfg.OpenRouter.Model, "embedder", cfg.EmbedderModel)
		return g, nil

	default: // gemini
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized genkit with gemini provider", "model", cfg.ModelName)
		return g, nil
	}
}

// provideEmbedder looks up the embedder registered by the provider
// plugin. Ollama keys embedders by server address; everything else goes
// through googlegenai by model name.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) (ai.Embedder, error) {
	var embedder ai.Embedder
	if cfg.Provider == config.ProviderOllama {
		embedder = ollama.Embedder(g, cfg.OllamaHost)
	} else {
		embedder = googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	return embedder, nil
}

// embedderStoreOptions returns knowledge store options for the configured
// embedding provider. gemini-embedding-001 emits 3072 dimensions unless
// told to truncate, and the documents schema stores
// knowledge.VectorDimension. Ollama embedding models emit their native
// size and take no genai options.
func embedderStoreOptions(cfg *config.Config) []knowledge.Option {
	if cfg.Provider == config.ProviderOllama {
		return nil
	}
	dim := knowledge.VectorDimension
	return []knowledge.Option{
		knowledge.WithEmbedOptions(&genai.EmbedContentConfig{OutputDimensionality: &dim}),
	}
}

// provideLLM builds the model client for the configured provider and
// wraps it with retry, rate limiting, and the circuit breaker.
func provideLLM(g *genkit.Genkit, cfg *config.Config, logger log.Logger) (llm.Client, error) {
	var base llm.Client
	switch cfg.Provider {
	case config.ProviderOpenRouter:
		client, err := llm.NewOpenRouter(llm.OpenRouterConfig{
			APIKey:  cfg.OpenRouter.APIKey,
			BaseURL: cfg.OpenRouter.BaseURL,
			Model:   cfg.OpenRouter.Model,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating openrouter client: %w", err)
		}
		base = client
	default:
		base = llm.NewGenkitClient(g, cfg.FullModelName(), logger)
	}

	return llm.NewRetryClient(base, llm.DefaultRetryConfig(), nil, logger), nil
}
