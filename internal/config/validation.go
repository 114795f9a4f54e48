package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"
)

// Validate validates configuration values.
// Returns sentinel errors checkable with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Provider and its credentials
	switch c.Provider {
	case ProviderGemini:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required for the gemini provider\n"+
				"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
				ErrMissingAPIKey)
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("%w: ollama_host cannot be empty", ErrInvalidOllamaHost)
		}
	case ProviderOpenRouter:
		if c.OpenRouter.APIKey == "" {
			return fmt.Errorf("%w: OPENROUTER_API_KEY environment variable is required for the openrouter provider",
				ErrMissingAPIKey)
		}
		if c.OpenRouter.Model == "" {
			return fmt.Errorf("%w: openrouter.model cannot be empty", ErrInvalidModelName)
		}
	default:
		return fmt.Errorf("%w: %q is not one of %v", ErrInvalidProvider, c.Provider,
			[]string{ProviderGemini, ProviderOllama, ProviderOpenRouter})
	}

	// 2. Model configuration
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	// 0.0 deterministic to 2.0 maximum sampling spread
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	if c.MaxTokens < 1 || c.MaxTokens > 2097152 {
		return fmt.Errorf("%w: must be between 1 and 2,097,152, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	// 3. Retrieval and memory bounds
	if c.RetrievalTopK < 1 || c.RetrievalTopK > MaxTopK {
		return fmt.Errorf("%w: must be between 1 and %d, got %d", ErrInvalidTopK, MaxTopK, c.RetrievalTopK)
	}

	if c.MemoryWindow < 1 || c.MemoryWindow > 100 {
		return fmt.Errorf("%w: must be between 1 and 100, got %d", ErrInvalidMemoryWindow, c.MemoryWindow)
	}

	// 4. Index rescan loop (only when a corpus directory is configured)
	if c.IndexDir != "" && c.IndexInterval < time.Minute {
		return fmt.Errorf("%w: must be at least 1m when index_dir is set, got %s",
			ErrInvalidIndexInterval, c.IndexInterval)
	}

	// 5. PostgreSQL configuration
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set in config.yaml", ErrInvalidPostgresPassword)
	}

	if c.PostgresPassword == "sankofa_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password in config.yaml for production deployments")
	}

	if len(c.PostgresPassword) < 8 {
		return fmt.Errorf("%w: postgres_password must be at least 8 characters (got %d)",
			ErrInvalidPostgresPassword, len(c.PostgresPassword))
	}

	// Modern SSL modes only; allow/prefer are excluded (MITM exposure).
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if c.PostgresSSLMode == "" {
		return fmt.Errorf("%w: postgres_ssl_mode is empty (should have default from setDefaults)",
			ErrInvalidPostgresSSLMode)
	}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	return nil
}

// NormalizeTopK maps an unset top-k to the default without touching values
// in range; out-of-range values are the caller's validation problem.
func NormalizeTopK(k int) int {
	if k == 0 {
		return DefaultTopK
	}
	return k
}

// NormalizeMemoryWindow clamps a window size into a usable range.
func NormalizeMemoryWindow(n int) int {
	if n <= 0 {
		return DefaultMemoryWindow
	}
	if n > 100 {
		return 100
	}
	return n
}
