package port

import "docqa/internal/domain"

type Chunker interface {
	// Chunk splits text into overlapping chunks attributed to sourceID.
	// Identical input always produces identical chunk boundaries.
	Chunk(text, sourceID string) ([]domain.Chunk, error)
}
