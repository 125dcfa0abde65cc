// Package config provides configuration management for Khetha.
// It loads settings from environment variables with the KHETHA_ prefix
// and provides sensible defaults for all configuration options.
//
// There is no process-global configuration state: LoadConfig returns a
// value that main constructs once and injects into every component.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration settings for the Khetha application.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	Catalog  CatalogConfig
	Security SecurityConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    // Server port (default: 7070)
	Host string // Server host (default: 127.0.0.1)
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	StorageEngine string // Storage engine type: sqlite, postgres (default: sqlite)
	DataPath      string // Path to data directory for SQLite (default: ./data)
	PostgresDSN   string // Postgres/Supabase connection string (required for postgres engine)
}

// LLMConfig contains language-model and embedding provider configuration.
type LLMConfig struct {
	Provider             string // LLM provider: openai, ollama (default: ollama)
	OllamaURL            string // Ollama API URL (default: http://localhost:11434)
	OllamaModel          string // Ollama model name for completions (default: qwen2.5:7b)
	OllamaEmbeddingModel string // Ollama model name for embeddings (default: nomic-embed-text)
	OpenAIAPIKey         string // OpenAI API key
	OpenAIModel          string // OpenAI chat model name (default: gpt-4o-mini)
	OpenAIEmbeddingModel string // OpenAI embedding model name (default: text-embedding-3-small)
	EmbeddingDimension   int    // Expected embedding dimension (default: 768)
}

// PipelineConfig contains retrieval and context-assembly tuning.
type PipelineConfig struct {
	RetrievalLimit  int     // Candidate chunks fetched per query (default: 20)
	MaxTokens       int     // Context token budget (default: 3000)
	DedupeThreshold float64 // Jaccard similarity above which chunks are duplicates (default: 0.9)
}

// CatalogConfig locates the program/bursary catalog.
type CatalogConfig struct {
	ProgramsPath  string // Path to the programs catalog YAML (default: ./data/programs.yaml)
	BursariesPath string // Path to the bursaries YAML (default: ./data/bursaries.yaml)
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string // Security mode: development, production (default: development)
	APIToken     string // API authentication token
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the KHETHA_ prefix.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("KHETHA_PORT", 7070),
			Host: getEnv("KHETHA_HOST", "127.0.0.1"),
		},
		Storage: StorageConfig{
			StorageEngine: getEnv("KHETHA_STORAGE_ENGINE", "sqlite"),
			DataPath:      getEnv("KHETHA_DATA_PATH", "./data"),
			PostgresDSN:   getEnv("KHETHA_POSTGRES_DSN", ""),
		},
		LLM: LLMConfig{
			Provider:             getEnv("KHETHA_LLM_PROVIDER", "ollama"),
			OllamaURL:            getEnv("KHETHA_OLLAMA_URL", "http://localhost:11434"),
			OllamaModel:          getEnv("KHETHA_OLLAMA_MODEL", "qwen2.5:7b"),
			OllamaEmbeddingModel: getEnv("KHETHA_EMBEDDING_MODEL", "nomic-embed-text"),
			OpenAIAPIKey:         getEnv("KHETHA_OPENAI_API_KEY", ""),
			OpenAIModel:          getEnv("KHETHA_OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIEmbeddingModel: getEnv("KHETHA_OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension:   getEnvInt("KHETHA_EMBEDDING_DIMENSION", 768),
		},
		Pipeline: PipelineConfig{
			RetrievalLimit:  getEnvInt("KHETHA_RETRIEVAL_LIMIT", 20),
			MaxTokens:       getEnvInt("KHETHA_MAX_CONTEXT_TOKENS", 3000),
			DedupeThreshold: getEnvFloat("KHETHA_DEDUPE_THRESHOLD", 0.9),
		},
		Catalog: CatalogConfig{
			ProgramsPath:  getEnv("KHETHA_PROGRAMS_PATH", "./data/programs.yaml"),
			BursariesPath: getEnv("KHETHA_BURSARIES_PATH", "./data/bursaries.yaml"),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("KHETHA_SECURITY_MODE", "development"),
			APIToken:     getEnv("KHETHA_API_TOKEN", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that env parsing cannot express.
func (c *Config) Validate() error {
	if c.Storage.StorageEngine == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("config: KHETHA_POSTGRES_DSN is required when KHETHA_STORAGE_ENGINE=postgres")
	}
	if c.Pipeline.MaxTokens < 1 {
		return fmt.Errorf("config: KHETHA_MAX_CONTEXT_TOKENS must be positive, got %d", c.Pipeline.MaxTokens)
	}
	if c.Pipeline.DedupeThreshold <= 0 || c.Pipeline.DedupeThreshold > 1 {
		return fmt.Errorf("config: KHETHA_DEDUPE_THRESHOLD must be in (0,1], got %v", c.Pipeline.DedupeThreshold)
	}
	if c.Security.SecurityMode == "production" && c.Security.APIToken == "" {
		return fmt.Errorf("config: KHETHA_API_TOKEN is required in production mode")
	}
	return nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as a float,
// it returns the default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
