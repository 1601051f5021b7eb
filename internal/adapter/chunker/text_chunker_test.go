package chunker

import (
	"errors"
	"strings"
	"testing"

	"docqa/internal/domain"
)

func TestTextChunkerDeterminism(t *testing.T) {
	c, err := NewTextChunker(50, 10)
	if err != nil {
		t.Fatal(err)
	}

	text := "First paragraph with several words in it.\n\nSecond paragraph continues the document. " +
		"It has more than one sentence. And then some trailing words to force several chunks."

	a, err := c.Chunk(text, "doc.txt")
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Chunk(text, "doc.txt")
	if err != nil {
		t.Fatal(err)
	}

	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between invocations: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestTextChunkerCoverage(t *testing.T) {
	c, err := NewTextChunker(40, 8)
	if err != nil {
		t.Fatal(err)
	}

	text := "The quick brown fox jumps over the lazy dog. Pack my box with five dozen liquor jugs. " +
		"How vexingly quick daft zebras jump! Sphinx of black quartz, judge my vow."

	chunks, err := c.Chunk(text, "pangrams.txt")
	if err != nil {
		t.Fatal(err)
	}

	// Stitch chunks back together using their offsets; every rune of the
	// input must be covered exactly once.
	runes := []rune(text)
	var sb strings.Builder
	covered := 0
	for _, ch := range chunks {
		if ch.Start > covered {
			t.Fatalf("gap before chunk %d: covered to %d, chunk starts at %d", ch.Index, covered, ch.Start)
		}
		if ch.End <= covered {
			continue
		}
		chText := []rune(ch.Text)
		sb.WriteString(string(chText[covered-ch.Start:]))
		covered = ch.End
	}
	if covered != len(runes) {
		t.Fatalf("text not fully covered: %d of %d runes", covered, len(runes))
	}
	if sb.String() != text {
		t.Error("reconstructed text does not match original")
	}
}

func TestTextChunkerMaxSize(t *testing.T) {
	c, err := NewTextChunker(30, 6)
	if err != nil {
		t.Fatal(err)
	}

	text := strings.Repeat("word after word without any sentence ends ", 10)
	chunks, err := c.Chunk(text, "run-on.txt")
	if err != nil {
		t.Fatal(err)
	}

	for _, ch := range chunks {
		if ch.Len() > 30 {
			t.Errorf("chunk %d exceeds size: %d runes", ch.Index, ch.Len())
		}
		if ch.Text != string([]rune(text)[ch.Start:ch.End]) {
			t.Errorf("chunk %d text does not match its offsets", ch.Index)
		}
	}
}

func TestTextChunkerSentenceBoundary(t *testing.T) {
	c, err := NewTextChunker(20, 5)
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := c.Chunk("The sky is blue. Grass is green.", "sky.txt")
	if err != nil {
		t.Fatal(err)
	}

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "The sky is blue." {
		t.Errorf("expected first chunk to end at the sentence boundary, got %q", chunks[0].Text)
	}
	if chunks[1].Text != ". Grass is green." {
		t.Errorf("unexpected second chunk: %q", chunks[1].Text)
	}
	if chunks[0].Index != 0 || chunks[1].Index != 1 {
		t.Error("chunk indexes must be sequential")
	}
}

func TestTextChunkerParagraphPreferred(t *testing.T) {
	c, err := NewTextChunker(30, 10)
	if err != nil {
		t.Fatal(err)
	}

	// The paragraph break sits inside the snap window of the first cut.
	text := "A short opening paragraph.\n\nThe second paragraph carries on for a while longer."
	chunks, err := c.Chunk(text, "p.txt")
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasSuffix(chunks[0].Text, "\n\n") {
		t.Errorf("expected first chunk to break after the paragraph, got %q", chunks[0].Text)
	}
}

func TestTextChunkerEmpty(t *testing.T) {
	c, err := NewTextChunker(100, 20)
	if err != nil {
		t.Fatal(err)
	}

	for _, text := range []string{"", "   \n\t  "} {
		_, err := c.Chunk(text, "empty.txt")
		if !errors.Is(err, domain.ErrEmptyDocument) {
			t.Errorf("expected ErrEmptyDocument for %q, got %v", text, err)
		}
	}
}

func TestTextChunkerShortText(t *testing.T) {
	c, err := NewTextChunker(100, 20)
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := c.Chunk("shorter than one chunk", "s.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "shorter than one chunk" {
		t.Errorf("unexpected chunk text %q", chunks[0].Text)
	}
	if chunks[0].Start != 0 || chunks[0].End != len([]rune("shorter than one chunk")) {
		t.Errorf("unexpected offsets %d-%d", chunks[0].Start, chunks[0].End)
	}
}

func TestNewTextChunkerValidation(t *testing.T) {
	if _, err := NewTextChunker(0, 0); err == nil {
		t.Error("expected error for zero size")
	}
	if _, err := NewTextChunker(100, 100); err == nil {
		t.Error("expected error for overlap == size")
	}
	if _, err := NewTextChunker(100, -1); err == nil {
		t.Error("expected error for negative overlap")
	}
}
