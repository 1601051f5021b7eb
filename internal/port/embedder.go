package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts, preserving input
	// order and length (one vector per text).
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding vector dimension. All vectors from
	// one Embedder share this dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}
