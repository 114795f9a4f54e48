// Package config provides application configuration with multi-source priority.
//
// Sources (highest to lowest):
//  1. Environment variables
//  2. Config file (~/.sankofa/config.yaml)
//  3. Defaults
//
// Categories:
//   - Model: provider selection, model name, temperature, embedder
//   - Storage: PostgreSQL connection (storage.go)
//   - Retrieval and memory: top-k, window size
//   - Indexing: corpus directory and rescan interval
//   - Server: CORS, proxy trust
//   - Telemetry: OTLP trace export (see internal/observability)
//
// Sensitive values (passwords, API keys) are masked in MarshalJSON and
// String; never log the raw struct fields directly.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the model provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidTopK indicates the retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top-k")

	// ErrInvalidMemoryWindow indicates the memory window size is out of range.
	ErrInvalidMemoryWindow = errors.New("invalid memory window")

	// ErrInvalidIndexInterval indicates the re-index interval is too short.
	ErrInvalidIndexInterval = errors.New("invalid index interval")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// Model provider identifiers used in Config.Provider.
const (
	ProviderGemini     = "gemini"
	ProviderOllama     = "ollama"
	ProviderOpenRouter = "openrouter"
	ProviderGoogleAI   = "googleai"
)

const (
	// DefaultGeminiEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 outputs 3072 dimensions by default but supports
	// truncation to 768, which is what the pgvector schema uses.
	DefaultGeminiEmbedderModel = "gemini-embedding-001"

	// DefaultOpenRouterModel is the chat model requested from OpenRouter
	// when no explicit model is configured.
	DefaultOpenRouterModel = "qwen/qwen3-30b-a3b-instruct-2507"

	// DefaultTopK is the number of chunks requested per similarity search.
	DefaultTopK = 5

	// MaxTopK bounds caller-supplied top-k values.
	MaxTopK = 20

	// DefaultMemoryWindow is the number of recent messages carried into
	// each generation as chat history.
	DefaultMemoryWindow = 10
)

// OpenRouterConfig holds the OpenRouter provider settings. Only used when
// Provider is "openrouter".
type OpenRouterConfig struct {
	// APIKey authenticates against OpenRouter (env OPENROUTER_API_KEY).
	APIKey string `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	// BaseURL is the chat completions endpoint base.
	BaseURL string `mapstructure:"base_url" json:"base_url"`
	// Model is the OpenRouter model slug.
	Model string `mapstructure:"model" json:"model"`
}

// MarshalJSON masks the API key.
func (o OpenRouterConfig) MarshalJSON() ([]byte, error) {
	type alias OpenRouterConfig
	a := alias(o)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal openrouter config: %w", err)
	}
	return data, nil
}

// TelemetryConfig holds OTLP trace export settings (see internal/observability).
type TelemetryConfig struct {
	// Endpoint is the OTLP HTTP collector address. Empty disables export.
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// Environment tags exported spans (default: dev).
	Environment string `mapstructure:"environment" json:"environment"`
	// ServiceName names this service in traces (default: sankofa).
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON. When adding a new
// secret field, update MarshalJSON as well.
type Config struct {
	// Model provider configuration
	Provider    string  `mapstructure:"provider" json:"provider"`     // "gemini" (default), "ollama", "openrouter"
	ModelName   string  `mapstructure:"model_name" json:"model_name"` // e.g. "gemini-2.5-flash", "llama3.3"
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Embedding model for the knowledge store
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Ollama configuration (provider "ollama" only)
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// OpenRouter configuration (provider "openrouter" only)
	OpenRouter OpenRouterConfig `mapstructure:"openrouter" json:"openrouter"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Retrieval and memory configuration
	RetrievalTopK int `mapstructure:"retrieval_top_k" json:"retrieval_top_k"`
	MemoryWindow  int `mapstructure:"memory_window" json:"memory_window"`

	// Corpus indexing configuration. IndexDir empty disables the rescan loop.
	IndexDir      string        `mapstructure:"index_dir" json:"index_dir"`
	IndexInterval time.Duration `mapstructure:"index_interval" json:"index_interval"`

	// Server configuration (serve mode only)
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // trust X-Real-IP/X-Forwarded-For behind a reverse proxy

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry" json:"telemetry"`
}

// Load loads configuration.
// Priority: environment variables > config file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".sankofa")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL, when set, overrides the individual postgres_* values.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("temperature", 0.4)
	viper.SetDefault("max_tokens", 2048)
	viper.SetDefault("embedder_model", DefaultGeminiEmbedderModel)

	viper.SetDefault("ollama_host", "http://localhost:11434")

	viper.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("openrouter.model", DefaultOpenRouterModel)

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "sankofa")
	viper.SetDefault("postgres_password", "sankofa_dev_password")
	viper.SetDefault("postgres_db_name", "sankofa")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("retrieval_top_k", DefaultTopK)
	viper.SetDefault("memory_window", DefaultMemoryWindow)

	viper.SetDefault("index_interval", time.Hour)

	viper.SetDefault("cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("trust_proxy", false)

	viper.SetDefault("telemetry.environment", "dev")
	viper.SetDefault("telemetry.service_name", "sankofa")
}

// bindEnvVariables binds environment overrides explicitly.
// GEMINI_API_KEY is read directly by genkit, not through viper; Validate
// checks its presence when the gemini provider is selected.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a
	// runtime condition.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "SANKOFA_PROVIDER")
	mustBind("model_name", "SANKOFA_MODEL_NAME")
	mustBind("ollama_host", "SANKOFA_OLLAMA_HOST")
	mustBind("openrouter.api_key", "OPENROUTER_API_KEY")
	mustBind("openrouter.model", "SANKOFA_OPENROUTER_MODEL")
	mustBind("index_dir", "SANKOFA_INDEX_DIR")
	mustBind("cors_origins", "SANKOFA_CORS_ORIGINS")
	mustBind("trust_proxy", "SANKOFA_TRUST_PROXY")
	mustBind("telemetry.endpoint", "SANKOFA_OTLP_ENDPOINT")
}

// maskedValue is the placeholder for masked sensitive data. Full-width
// blocks avoid accidental substring matches against real secret content.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Secrets of 8 bytes or fewer
// are fully masked; longer ones keep the first and last 2 characters for
// debugging. This guards against accidental logging, not log compromise.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
// Masked: PostgresPassword, OpenRouter.APIKey (via its own MarshalJSON).
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for genkit.
// Examples: "googleai/gemini-2.5-flash", "ollama/llama3.3". A ModelName
// already containing "/" is returned as-is. Not used by the OpenRouter
// provider, which addresses models by their raw slug.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	if c.Provider == ProviderOllama {
		return ProviderOllama + "/" + c.ModelName
	}
	return ProviderGoogleAI + "/" + c.ModelName
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
