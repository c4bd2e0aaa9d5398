package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		AI:      AIConfig{Provider: "openai"},
		Query:   QueryConfig{DefaultLimit: 5, DefaultThreshold: 0.25},
		Credits: CreditsConfig{InitialBalance: 50, CharacterThreshold: 100},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"anthropic provider valid", func(c *Config) { c.AI.Provider = "anthropic" }, false},
		{"unknown provider", func(c *Config) { c.AI.Provider = "llama" }, true},
		{"limit too low", func(c *Config) { c.Query.DefaultLimit = 0 }, true},
		{"limit too high", func(c *Config) { c.Query.DefaultLimit = 11 }, true},
		{"threshold negative", func(c *Config) { c.Query.DefaultThreshold = -0.5 }, true},
		{"threshold above one", func(c *Config) { c.Query.DefaultThreshold = 1.5 }, true},
		{"zero character threshold", func(c *Config) { c.Credits.CharacterThreshold = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConnectionString(t *testing.T) {
	db := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "lexhaven",
		Password: "secret",
		Database: "lexhaven_engine",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.internal port=5433 user=lexhaven password=secret dbname=lexhaven_engine sslmode=require",
		db.ConnectionString())
}
