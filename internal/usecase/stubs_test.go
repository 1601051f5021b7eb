package usecase

import (
	"context"
	"path/filepath"
	"testing"

	"docqa/internal/adapter/index"
)

// stubEmbedder returns handcrafted vectors so ranking in tests is
// predictable. Texts without a fixture get a neutral vector.
type stubEmbedder struct {
	dim        int
	vectors    map[string][]float32
	embedCalls int
	queryCalls int
	fail       error
}

func newStubEmbedder(dim int, vectors map[string][]float32) *stubEmbedder {
	return &stubEmbedder{dim: dim, vectors: vectors}
}

func (s *stubEmbedder) vector(text string) []float32 {
	if v, ok := s.vectors[text]; ok {
		return v
	}
	v := make([]float32, s.dim)
	v[0] = 1
	return v
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.embedCalls++
	if s.fail != nil {
		return nil, s.fail
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = s.vector(t)
	}
	return out, nil
}

func (s *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	s.queryCalls++
	if s.fail != nil {
		return nil, s.fail
	}
	return s.vector(text), nil
}

func (s *stubEmbedder) Dimension() int { return s.dim }

func (s *stubEmbedder) ModelName() string { return "stub" }

type stubGenerator struct {
	response   string
	err        error
	lastSystem string
	lastUser   string
	calls      int
}

func (g *stubGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	g.calls++
	g.lastSystem = systemPrompt
	g.lastUser = userPrompt
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func (g *stubGenerator) ModelName() string { return "stub" }

func openTestIndex(t *testing.T, dim int) *index.BoltIndex {
	t.Helper()
	idx, err := index.Open(filepath.Join(t.TempDir(), "index.db"), dim, "stub")
	if err != nil {
		t.Fatalf("Open index failed: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}
