// Package llm provides embedding and generation clients for the query
// pipeline. Embeddings go through an OpenAI-compatible endpoint; answer
// generation is provider-selectable (OpenAI-compatible or Anthropic).
package llm

import "context"

// Embedder turns text into a vector. Implemented by the OpenAI-compatible
// client. Use this interface for dependency injection to enable mocking.
type Embedder interface {
	// CreateEmbedding generates an embedding vector for the input text.
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)

	// Model returns the configured embedding model name.
	Model() string
}

// Generator produces a chat completion from a prompt.
type Generator interface {
	// GenerateResponse generates a completion for the prompt.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// Model returns the configured generation model name.
	Model() string
}

// Compile-time interface checks.
var (
	_ Embedder  = (*Client)(nil)
	_ Generator = (*Client)(nil)
	_ Generator = (*AnthropicClient)(nil)
)
