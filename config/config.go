package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for docqa.
type Config struct {
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ChunkingConfig holds chunk boundary configuration.
type ChunkingConfig struct {
	Size    int `yaml:"size"`    // target maximum chunk length in runes
	Overlap int `yaml:"overlap"` // span shared by consecutive chunks; must be < size
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`    // "openai", "ollama", "mock"
	Model      string `yaml:"model"`       // e.g., "text-embedding-3-small"
	APIKeyEnv  string `yaml:"api_key_env"` // environment variable holding the API key
	BaseURL    string `yaml:"base_url"`    // override for OpenAI-compatible endpoints
	Dimension  int    `yaml:"dimension"`
	BatchSize  int    `yaml:"batch_size"`
	MaxRetries int    `yaml:"max_retries"`
	RetryBase  int    `yaml:"retry_base_ms"` // base backoff delay in milliseconds
}

// GenerationConfig holds generation provider configuration.
type GenerationConfig struct {
	Provider    string  `yaml:"provider"` // "openai", "ollama", "mock"
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
}

// RetrieveConfig holds retrieval and context budget configuration.
type RetrieveConfig struct {
	TopK            int `yaml:"top_k"`
	MaxContextChars int `yaml:"max_context_chars"`
}

// IngestConfig holds bulk ingestion configuration.
type IngestConfig struct {
	Includes      []string `yaml:"includes"`
	Excludes      []string `yaml:"excludes"`
	MaxFileSizeMB int      `yaml:"max_file_size_mb"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			Size:    1000,
			Overlap: 200,
		},
		Embedding: EmbeddingConfig{
			Provider:   "openai",
			Model:      "text-embedding-3-small",
			APIKeyEnv:  "OPENAI_API_KEY",
			Dimension:  1536,
			BatchSize:  100,
			MaxRetries: 3,
			RetryBase:  500,
		},
		Generation: GenerationConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0.2,
		},
		Retrieve: RetrieveConfig{
			TopK:            5,
			MaxContextChars: 8000,
		},
		Ingest: IngestConfig{
			Includes:      []string{"**/*.txt", "**/*.md", "**/*.pdf"},
			Excludes:      []string{"**/.docqa/**", "**/.git/**", "**/node_modules/**"},
			MaxFileSizeMB: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docqa.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docqa.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docqa", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the path to the vector index database.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, ".docqa", "index.db")
}

// DocumentsDir returns the path to the raw document store.
func DocumentsDir(dir string) string {
	return filepath.Join(dir, ".docqa", "docs")
}

// EnsureDataDir ensures the .docqa directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".docqa"), 0755)
}
