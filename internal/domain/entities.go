package domain

import "time"

// StoredDocument describes a raw uploaded document held by the document store.
// The core only ever reads its bytes and source key.
type StoredDocument struct {
	Key              string    `json:"key"`
	OriginalFilename string    `json:"original_filename"`
	ContentType      string    `json:"content_type"`
	Size             int64     `json:"size"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

// Chunk is a contiguous text span cut from one source document.
// Start and End are rune offsets into the source text.
type Chunk struct {
	SourceID string `json:"source_id"`
	Index    int    `json:"index"`
	Text     string `json:"text"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

// Len returns the chunk length in runes.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// VectorRecord pairs a chunk with its embedding inside the vector index.
type VectorRecord struct {
	ID     string
	Chunk  Chunk
	Vector []float32
}

type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// SourceSummary is the aggregate view of one indexed source.
type SourceSummary struct {
	SourceID      string    `json:"source_id"`
	ChunkCount    int       `json:"chunk_count"`
	LastIndexedAt time.Time `json:"last_indexed_at"`
}

// Answer is a generated response grounded in retrieved context.
// An empty Sources slice means no indexed context contributed to it.
type Answer struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources"`
}

// ConversationTurn records one question/answer exchange.
type ConversationTurn struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Sources  []string  `json:"sources"`
	AskedAt  time.Time `json:"asked_at"`
}
