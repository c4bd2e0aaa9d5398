package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lexhaven/lexhaven-engine/pkg/config"
)

// NewEmbedder builds the embedding client from configuration. Embeddings
// always use the OpenAI-compatible endpoint regardless of the generation
// provider.
func NewEmbedder(cfg *config.AIConfig, logger *zap.Logger) (Embedder, error) {
	client, err := NewClient(&Config{
		Endpoint:       cfg.OpenAIBaseURL,
		EmbeddingModel: cfg.EmbeddingModel,
		APIKey:         cfg.OpenAIAPIKey,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}
	return client, nil
}

// NewGenerator builds the generation client selected by cfg.Provider.
func NewGenerator(cfg *config.AIConfig, logger *zap.Logger) (Generator, error) {
	switch cfg.Provider {
	case "anthropic":
		client, err := NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, logger)
		if err != nil {
			return nil, fmt.Errorf("create anthropic client: %w", err)
		}
		return client, nil
	case "openai":
		client, err := NewClient(&Config{
			Endpoint:  cfg.OpenAIBaseURL,
			ChatModel: cfg.ChatModel,
			APIKey:    cfg.OpenAIAPIKey,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}
