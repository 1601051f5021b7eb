package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"docqa/internal/domain"
)

// TextChunker splits document text into overlapping chunks. It prefers
// breaking at paragraph and sentence boundaries near the target size and
// falls back to a hard cut, so no chunk ever exceeds the target size.
type TextChunker struct {
	size      int // target maximum chunk length in runes
	overlap   int // runes shared by consecutive chunks
	tolerance int // boundary-snap window before the target cut
}

// NewTextChunker creates a chunker with the given size and overlap.
// The snap tolerance is a fifth of the size, capped at the overlap so the
// fixed-stride advance never skips text a snapped boundary set aside.
func NewTextChunker(size, overlap int) (*TextChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, size), got %d for size %d", overlap, size)
	}

	tolerance := size / 5
	if tolerance < 1 {
		tolerance = 1
	}
	if tolerance > overlap {
		tolerance = overlap
	}

	return &TextChunker{
		size:      size,
		overlap:   overlap,
		tolerance: tolerance,
	}, nil
}

// Chunk splits text into chunks attributed to sourceID. Offsets are rune
// positions into the input; the same input always yields the same chunks.
func (c *TextChunker) Chunk(text, sourceID string) ([]domain.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("chunk %q: %w", sourceID, domain.ErrEmptyDocument)
	}

	runes := []rune(text)
	step := c.size - c.overlap

	var chunks []domain.Chunk
	start := 0

	for {
		end := start + c.size
		last := false
		if end >= len(runes) {
			end = len(runes)
			last = true
		} else {
			end = c.snapBoundary(runes, start, end)
		}

		chunks = append(chunks, domain.Chunk{
			SourceID: sourceID,
			Index:    len(chunks),
			Text:     string(runes[start:end]),
			Start:    start,
			End:      end,
		})

		if last {
			return chunks, nil
		}
		start += step
	}
}

// snapBoundary moves the cut from end backward to the nearest natural
// boundary within the tolerance window. Preference: paragraph break, then
// sentence end, then word break; a hard cut at end otherwise.
func (c *TextChunker) snapBoundary(runes []rune, start, end int) int {
	lo := end - c.tolerance
	if lo <= start+1 {
		lo = start + 1
	}

	for cut := end; cut >= lo; cut-- {
		if cut >= 2 && runes[cut-1] == '\n' && runes[cut-2] == '\n' {
			return cut
		}
	}
	for cut := end; cut >= lo; cut-- {
		if isSentenceEnd(runes[cut-1]) && (cut == len(runes) || unicode.IsSpace(runes[cut])) {
			return cut
		}
	}
	for cut := end; cut >= lo; cut-- {
		if unicode.IsSpace(runes[cut-1]) {
			return cut
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
