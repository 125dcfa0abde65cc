// Package llm provides language-model and embedding provider adapters.
// All outbound calls are wrapped with circuit breaker protection so a
// failing provider degrades retrieval instead of failing requests.
package llm

import "context"

// TextGenerator is the interface for LLM text completion.
// The guidance pipeline hands it a single assembled context string.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GetModel() string
}

// EmbeddingGenerator is the interface for generating vector embeddings
// of fixed, store-compatible dimensionality.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}
