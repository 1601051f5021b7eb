package port

import "docqa/internal/domain"

// VectorIndex persists embedding records and serves similarity search.
type VectorIndex interface {
	// Upsert atomically replaces all records for sourceID with the given
	// set and returns the number written. No reader observes a state with
	// neither the old nor the new complete set.
	Upsert(sourceID string, records []domain.VectorRecord) (int, error)

	// Search returns up to topK records ranked by descending cosine
	// similarity. Ties break by lower chunk index, then source id.
	// An empty index yields an empty result, not an error.
	Search(query []float32, topK int) ([]domain.ScoredChunk, error)

	// Delete removes all records for sourceID and returns the count
	// removed. A missing source returns 0.
	Delete(sourceID string) (int, error)

	// ListSources returns one summary per indexed source, ordered by
	// source id.
	ListSources() ([]domain.SourceSummary, error)

	// Generation increments on every successful Upsert or Delete. Cached
	// search results from an older generation are stale.
	Generation() uint64

	Close() error
}
