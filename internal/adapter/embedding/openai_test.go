package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"docqa/internal/domain"
)

type embeddingStub struct {
	inputs    [][]string
	failFirst int32 // respond 500 this many times before succeeding
	dimension int
}

func (s *embeddingStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		s.inputs = append(s.inputs, req.Input)

		if atomic.AddInt32(&s.failFirst, -1) >= 0 {
			http.Error(w, `{"error":{"message":"upstream overloaded"}}`, http.StatusInternalServerError)
			return
		}

		type datum struct {
			Object    string    `json:"object"`
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]datum, len(req.Input))
		for i := range req.Input {
			vec := make([]float64, s.dimension)
			vec[0] = float64(i + 1)
			data[i] = datum{Object: "embedding", Embedding: vec, Index: i}
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"object":"list","data":%s,"model":"stub","usage":{"prompt_tokens":1,"total_tokens":1}}`,
			mustJSON(data))
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func newTestEmbedder(t *testing.T, stub *embeddingStub, batchSize int) *OpenAIEmbedder {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	e, err := NewOpenAIEmbedder(Config{
		APIKey:    "test-key",
		Model:     "stub-model",
		BaseURL:   srv.URL,
		Dimension: stub.dimension,
		BatchSize: batchSize,
		Retry:     RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond},
	})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestOpenAIEmbedderBatching(t *testing.T) {
	stub := &embeddingStub{dimension: 4}
	e := newTestEmbedder(t, stub, 2)

	texts := []string{"one", "two", "three", "four", "five"}
	vectors, err := e.Embed(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}

	if len(vectors) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != 4 {
			t.Errorf("vector %d has dimension %d, want 4", i, len(v))
		}
	}
	if len(stub.inputs) != 3 {
		t.Errorf("expected 3 batches for 5 texts with batch size 2, got %d", len(stub.inputs))
	}
	if strings.Join(stub.inputs[0], ",") != "one,two" {
		t.Errorf("unexpected first batch: %v", stub.inputs[0])
	}
}

func TestOpenAIEmbedderRetriesThenSucceeds(t *testing.T) {
	stub := &embeddingStub{dimension: 4, failFirst: 2}
	e := newTestEmbedder(t, stub, 10)

	vectors, err := e.Embed(context.Background(), []string{"hello"})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(vectors) != 1 {
		t.Fatalf("expected 1 vector, got %d", len(vectors))
	}
	if len(stub.inputs) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(stub.inputs))
	}
}

func TestOpenAIEmbedderRetriesExhausted(t *testing.T) {
	stub := &embeddingStub{dimension: 4, failFirst: 100}
	e := newTestEmbedder(t, stub, 10)

	_, err := e.Embed(context.Background(), []string{"hello"})
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("expected ErrEmbeddingProvider, got %v", err)
	}
	if len(stub.inputs) != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", len(stub.inputs))
	}
}

func TestOpenAIEmbedderDimensionGuard(t *testing.T) {
	stub := &embeddingStub{dimension: 8}
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	// Embedder expects 4 dimensions; stub returns 8.
	e, err := NewOpenAIEmbedder(Config{
		APIKey:    "test-key",
		Model:     "stub-model",
		BaseURL:   srv.URL,
		Dimension: 4,
		Retry:     RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond},
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = e.Embed(context.Background(), []string{"hello"})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if len(stub.inputs) != 1 {
		t.Errorf("dimension violations must not be retried, got %d attempts", len(stub.inputs))
	}
}

func TestOpenAIEmbedderEmptyInput(t *testing.T) {
	stub := &embeddingStub{dimension: 4}
	e := newTestEmbedder(t, stub, 10)

	vectors, err := e.Embed(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(vectors) != 0 {
		t.Errorf("expected no vectors, got %d", len(vectors))
	}
	if len(stub.inputs) != 0 {
		t.Error("empty input must not hit the provider")
	}
}

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(64)

	a, err := e.EmbedQuery(context.Background(), "the sky is blue")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.EmbedQuery(context.Background(), "the sky is blue")
	if err != nil {
		t.Fatal(err)
	}

	if len(a) != 64 || len(b) != 64 {
		t.Fatalf("unexpected dimensions %d, %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("mock embedding not deterministic at %d", i)
		}
	}
}

func TestMockEmbedderOrderPreserved(t *testing.T) {
	e := NewMockEmbedder(32)

	texts := []string{"first text", "second text", "third text"}
	vectors, err := e.Embed(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}

	single, err := e.EmbedQuery(context.Background(), "second text")
	if err != nil {
		t.Fatal(err)
	}
	for i := range single {
		if single[i] != vectors[1][i] {
			t.Fatal("batch and single embeddings disagree for identical text")
		}
	}
}
