package llm

import (
	"fmt"

	"github.com/khetha-app/khetha/internal/config"
)

// Provider bundles a text generator and an embedding generator from the
// same backend, sharing one circuit breaker per client.
type Provider struct {
	Text      TextGenerator
	Embedding EmbeddingGenerator

	// breaker reports the provider's circuit state for /api/stats.
	breaker *CircuitBreaker
}

// BreakerState returns the provider's current circuit state.
func (p *Provider) BreakerState() string {
	if p.breaker == nil {
		return "unknown"
	}
	return p.breaker.State()
}

// BreakerMetrics returns the provider's circuit metrics.
func (p *Provider) BreakerMetrics() CircuitBreakerMetrics {
	if p.breaker == nil {
		return CircuitBreakerMetrics{}
	}
	return p.breaker.Metrics()
}

// NewProvider constructs the configured LLM provider.
// Supported providers: "ollama" (default) and "openai".
func NewProvider(cfg config.LLMConfig) (*Provider, error) {
	switch cfg.Provider {
	case "", "ollama":
		client := NewOllamaClient(OllamaConfig{
			BaseURL:        cfg.OllamaURL,
			Model:          cfg.OllamaModel,
			EmbeddingModel: cfg.OllamaEmbeddingModel,
		})
		return &Provider{Text: client, Embedding: client, breaker: client.Breaker()}, nil

	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("llm: openai provider requires KHETHA_OPENAI_API_KEY")
		}
		client := NewOpenAIClient(OpenAIConfig{
			APIKey:         cfg.OpenAIAPIKey,
			Model:          cfg.OpenAIModel,
			EmbeddingModel: cfg.OpenAIEmbeddingModel,
		})
		return &Provider{Text: client, Embedding: client, breaker: client.Breaker()}, nil

	default:
		return nil, fmt.Errorf("llm: unknown provider %q (supported: ollama, openai)", cfg.Provider)
	}
}
