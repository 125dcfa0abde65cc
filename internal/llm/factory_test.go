package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khetha-app/khetha/internal/config"
)

func TestNewProvider_DefaultsToOllama(t *testing.T) {
	p, err := NewProvider(config.LLMConfig{})
	require.NoError(t, err)
	require.NotNil(t, p.Text)
	require.NotNil(t, p.Embedding)
	assert.Equal(t, "qwen2.5:7b", p.Text.GetModel())
	assert.Equal(t, "closed", p.BreakerState())
}

func TestNewProvider_OpenAI(t *testing.T) {
	p, err := NewProvider(config.LLMConfig{
		Provider:     "openai",
		OpenAIAPIKey: "test-key",
		OpenAIModel:  "gpt-4o-mini",
	})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", p.Text.GetModel())
}

func TestNewProvider_OpenAIRequiresKey(t *testing.T) {
	_, err := NewProvider(config.LLMConfig{Provider: "openai"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KHETHA_OPENAI_API_KEY")
}

func TestNewProvider_UnknownProvider(t *testing.T) {
	_, err := NewProvider(config.LLMConfig{Provider: "bard"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}
