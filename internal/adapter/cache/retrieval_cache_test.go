package cache

import (
	"fmt"
	"testing"
	"time"

	"docqa/internal/domain"
)

func results(texts ...string) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, len(texts))
	for i, text := range texts {
		out[i] = domain.ScoredChunk{
			Chunk: domain.Chunk{SourceID: "doc.txt", Index: i, Text: text},
			Score: 1.0 - float64(i)*0.1,
		}
	}
	return out
}

func TestCacheHit(t *testing.T) {
	c := NewRetrievalCache(10, time.Minute)

	c.Put("what is the sky", 5, 1, results("the sky is blue"))

	got, hit := c.Get("what is the sky", 5, 1)
	if !hit {
		t.Fatal("expected cache hit")
	}
	if len(got) != 1 || got[0].Chunk.Text != "the sky is blue" {
		t.Errorf("unexpected cached results: %+v", got)
	}
}

func TestCacheMissOnDifferentKey(t *testing.T) {
	c := NewRetrievalCache(10, time.Minute)
	c.Put("question", 5, 1, results("a"))

	if _, hit := c.Get("other question", 5, 1); hit {
		t.Error("expected miss for different question")
	}
	if _, hit := c.Get("question", 3, 1); hit {
		t.Error("expected miss for different topK")
	}
}

func TestCacheInvalidatedByGeneration(t *testing.T) {
	c := NewRetrievalCache(10, time.Minute)
	c.Put("question", 5, 1, results("a"))

	if _, hit := c.Get("question", 5, 2); hit {
		t.Error("expected miss after index generation changed")
	}

	// the stale entry is evicted, not resurrected by the old generation
	if _, hit := c.Get("question", 5, 1); hit {
		t.Error("expected stale entry to be gone")
	}
	if c.Size() != 0 {
		t.Errorf("expected empty cache, got size %d", c.Size())
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	c := NewRetrievalCache(10, 10*time.Millisecond)
	c.Put("question", 5, 1, results("a"))

	time.Sleep(20 * time.Millisecond)

	if _, hit := c.Get("question", 5, 1); hit {
		t.Error("expected miss after TTL expiry")
	}
}

func TestCacheEviction(t *testing.T) {
	c := NewRetrievalCache(3, time.Minute)

	for i := 0; i < 4; i++ {
		c.Put(fmt.Sprintf("question %d", i), 5, 1, results("a"))
	}

	if c.Size() != 3 {
		t.Errorf("expected size 3 after eviction, got %d", c.Size())
	}
	if _, hit := c.Get("question 0", 5, 1); hit {
		t.Error("expected oldest entry to be evicted")
	}
	if _, hit := c.Get("question 3", 5, 1); !hit {
		t.Error("expected newest entry to survive")
	}
}
