package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"docqa/internal/domain"
)

// RetryPolicy bounds automatic retries of failed embedding batches.
// Delay grows exponentially from BaseDelay between attempts.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy retries each batch three times, starting at 500ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond}
}

// Config configures an OpenAIEmbedder. The API key is passed in explicitly;
// the adapter never reads the environment.
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string // optional, for OpenAI-compatible endpoints (Ollama, Jina)
	Dimension int
	BatchSize int
	Retry     RetryPolicy
}

// OpenAIEmbedder talks to an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
	batchSize int
	retry     RetryPolicy
}

// NewOpenAIEmbedder creates an embedder for the configured endpoint.
// SDK-internal retries are disabled; cfg.Retry owns all retry behavior.
func NewOpenAIEmbedder(cfg Config) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", cfg.Dimension)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIEmbedder{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		batchSize: cfg.BatchSize,
		retry:     cfg.Retry,
	}, nil
}

// Embed embeds texts in batches, preserving input order and length.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vectors...)
	}

	return all, nil
}

// EmbedQuery embeds a single query string.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d: %w", len(vectors), domain.ErrEmbeddingProvider)
	}
	return vectors[0], nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error

	for attempt := 0; attempt < e.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := e.retry.BaseDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("embedding canceled: %v: %w", ctx.Err(), domain.ErrEmbeddingProvider)
			}
		}

		resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			lastErr = err
			continue
		}

		vectors, err := e.collect(resp, len(texts))
		if err != nil {
			return nil, err // invariant violation, not retryable
		}
		return vectors, nil
	}

	return nil, fmt.Errorf("embedding request failed after %d attempts: %v: %w",
		e.retry.MaxAttempts, lastErr, domain.ErrEmbeddingProvider)
}

// collect reorders the response by index and enforces the fixed dimension.
func (e *OpenAIEmbedder) collect(resp *openai.CreateEmbeddingResponse, want int) ([][]float32, error) {
	if len(resp.Data) != want {
		return nil, fmt.Errorf("provider returned %d embeddings for %d inputs: %w",
			len(resp.Data), want, domain.ErrEmbeddingProvider)
	}

	vectors := make([][]float32, want)
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= want {
			return nil, fmt.Errorf("provider returned out-of-range index %d: %w", d.Index, domain.ErrEmbeddingProvider)
		}
		if len(d.Embedding) != e.dimension {
			return nil, fmt.Errorf("provider returned %d-dimensional vector, index expects %d: %w",
				len(d.Embedding), e.dimension, domain.ErrDimensionMismatch)
		}
		vec := make([]float32, e.dimension)
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		vectors[d.Index] = vec
	}

	return vectors, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
