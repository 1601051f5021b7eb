package domain

import "errors"

// Error categories. Callers test with errors.Is; adapters wrap these with
// fmt.Errorf("...: %w", ...) to add context.
var (
	// ErrEmptyDocument reports input text that is empty after normalization.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrUnsupportedFormat reports a content type that cannot be converted
	// to plain text.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrEmbeddingProvider reports an embedding call that failed after the
	// configured retries were exhausted.
	ErrEmbeddingProvider = errors.New("embedding provider failure")

	// ErrGenerationProvider reports a failed generation call. Generation is
	// never retried; the caller gets no partial answer.
	ErrGenerationProvider = errors.New("generation provider failure")

	// ErrDimensionMismatch reports a vector whose width does not match the
	// index, or an index opened against a different embedding model.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrIndexCorruption reports a durable store that cannot be parsed.
	// Fatal: the index refuses to serve until rebuilt.
	ErrIndexCorruption = errors.New("vector index corrupted")
)
