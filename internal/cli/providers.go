package cli

import (
	"fmt"
	"os"
	"time"

	"docqa/config"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/index"
	"docqa/internal/adapter/llm"
	"docqa/internal/port"
)

// newEmbedder builds the configured embedding provider. API keys are
// resolved from the environment here and nowhere else.
func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "openai", "ollama":
		return embedding.NewOpenAIEmbedder(embedding.Config{
			APIKey:    os.Getenv(cfg.Embedding.APIKeyEnv),
			Model:     cfg.Embedding.Model,
			BaseURL:   cfg.Embedding.BaseURL,
			Dimension: cfg.Embedding.Dimension,
			BatchSize: cfg.Embedding.BatchSize,
			Retry: embedding.RetryPolicy{
				MaxAttempts: cfg.Embedding.MaxRetries,
				BaseDelay:   time.Duration(cfg.Embedding.RetryBase) * time.Millisecond,
			},
		})
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

func newGenerator(cfg *config.Config) (port.Generator, error) {
	switch cfg.Generation.Provider {
	case "openai", "ollama":
		return llm.NewOpenAIGenerator(llm.Config{
			APIKey:      os.Getenv(cfg.Generation.APIKeyEnv),
			Model:       cfg.Generation.Model,
			BaseURL:     cfg.Generation.BaseURL,
			Temperature: cfg.Generation.Temperature,
		})
	case "mock":
		return llm.NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", cfg.Generation.Provider)
	}
}

// openIndex opens the vector index under rootDir, pinned to the
// embedder's dimension and model.
func openIndex(cfg *config.Config, rootDir string, embedder port.Embedder) (*index.BoltIndex, error) {
	if err := config.EnsureDataDir(rootDir); err != nil {
		return nil, fmt.Errorf("failed to create .docqa directory: %w", err)
	}
	idx, err := index.Open(config.IndexDBPath(rootDir), embedder.Dimension(), embedder.ModelName())
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return idx, nil
}
