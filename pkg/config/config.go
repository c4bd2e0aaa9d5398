package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for lexhaven-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys, passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL with pgvector)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration for the answer cache
	Redis RedisConfig `yaml:"redis"`

	// AI provider configuration
	AI AIConfig `yaml:"ai"`

	// Query pipeline configuration
	Query QueryConfig `yaml:"query"`

	// Credit ledger configuration
	Credits CreditsConfig `yaml:"credits"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"lexhaven"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"lexhaven_engine"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`

	// Pool sizing. The pipeline holds connections only for short ledger
	// transactions and single search calls, so a modest pool suffices.
	MaxConnections  int32         `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"PGCONN_MAX_LIFETIME" env-default:"1h"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" env:"PGCONN_MAX_IDLE_TIME" env-default:"30m"`
}

// RedisConfig holds Redis configuration for the answer cache.
// An empty host disables the cache (queries always recompute).
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// AIConfig holds embedding and generation provider configuration.
type AIConfig struct {
	// Provider selects the generation backend: "openai" or "anthropic".
	// Embeddings always use the OpenAI-compatible endpoint.
	Provider string `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"`

	OpenAIBaseURL  string `yaml:"openai_base_url" env:"OPENAI_BASE_URL" env-default:"https://api.openai.com/v1"`
	OpenAIAPIKey   string `yaml:"-" env:"OPENAI_API_KEY"` // Secret - not in YAML
	ChatModel      string `yaml:"chat_model" env:"AI_CHAT_MODEL" env-default:"gpt-4o-mini"`
	EmbeddingModel string `yaml:"embedding_model" env:"AI_EMBEDDING_MODEL" env-default:"text-embedding-3-small"`

	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML
	AnthropicModel  string `yaml:"anthropic_model" env:"AI_ANTHROPIC_MODEL" env-default:"claude-3-5-haiku-20241022"`

	Temperature float64 `yaml:"temperature" env:"AI_TEMPERATURE" env-default:"0.1"`
}

// QueryConfig holds query pipeline tuning.
type QueryConfig struct {
	// Timeout bounds the end-to-end pipeline; a timeout after debit refunds.
	Timeout time.Duration `yaml:"timeout" env:"QUERY_TIMEOUT" env-default:"30s"`

	// CacheTTL is how long computed answers stay valid.
	CacheTTL time.Duration `yaml:"cache_ttl" env:"QUERY_CACHE_TTL" env-default:"1h"`

	// DefaultLimit and DefaultThreshold apply when a request leaves them unset.
	DefaultLimit     int     `yaml:"default_limit" env:"QUERY_DEFAULT_LIMIT" env-default:"5"`
	DefaultThreshold float64 `yaml:"default_threshold" env:"QUERY_DEFAULT_THRESHOLD" env-default:"0.25"`

	// RatePerMinute is the fixed-window per-account query rate limit.
	RatePerMinute int `yaml:"rate_per_minute" env:"QUERY_RATE_PER_MINUTE" env-default:"20"`
}

// CreditsConfig holds credit ledger tuning.
type CreditsConfig struct {
	// InitialBalance is granted when an account is first provisioned.
	InitialBalance int `yaml:"initial_balance" env:"CREDITS_INITIAL_BALANCE" env-default:"50"`

	// CharacterThreshold is the question-length block size for pricing:
	// one credit per started block, minimum one.
	CharacterThreshold int `yaml:"character_threshold" env:"CREDITS_CHARACTER_THRESHOLD" env-default:"100"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.AI.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("ai.provider must be openai or anthropic, got %q", c.AI.Provider)
	}
	if c.Query.DefaultLimit < 1 || c.Query.DefaultLimit > 10 {
		return fmt.Errorf("query.default_limit must be in [1,10], got %d", c.Query.DefaultLimit)
	}
	if c.Query.DefaultThreshold < 0 || c.Query.DefaultThreshold > 1 {
		return fmt.Errorf("query.default_threshold must be in [0,1], got %f", c.Query.DefaultThreshold)
	}
	if c.Credits.CharacterThreshold <= 0 {
		return fmt.Errorf("credits.character_threshold must be positive, got %d", c.Credits.CharacterThreshold)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
