package index

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"

	"docqa/internal/domain"
)

// CurrentSchemaVersion is the on-disk format version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var (
	bucketRecords = []byte("records")
	bucketSources = []byte("sources")
	bucketMeta    = []byte("meta")

	keySchemaVersion = []byte("schema_version")
	keyDimension     = []byte("dimension")
	keyModel         = []byte("model")
)

type recordMeta struct {
	SourceID   string    `json:"source_id"`
	ChunkIndex int       `json:"chunk_index"`
	Start      int       `json:"start"`
	End        int       `json:"end"`
	Text       string    `json:"text"`
	Vector     []float32 `json:"vector"`
}

type sourceMeta struct {
	RecordIDs     []string `json:"record_ids"`
	LastIndexedAt int64    `json:"last_indexed_at"`
}

type sourceEntry struct {
	records       []domain.VectorRecord
	lastIndexedAt time.Time
}

// BoltIndex is a durable vector index backed by bbolt with a full
// in-memory mirror for search. All vectors share one dimension and one
// embedding model, both pinned in the meta bucket at creation time.
type BoltIndex struct {
	db    *bbolt.DB
	dim   int
	model string

	mu       sync.RWMutex
	bySource map[string]sourceEntry

	lockMu   sync.Mutex
	srcLocks map[string]*sync.Mutex

	generation atomic.Uint64
}

// Open opens or creates the index at path. An existing index must have
// been written with the same embedding dimension and model, otherwise
// Open fails with ErrDimensionMismatch and the caller should rebuild.
func Open(path string, dim int, model string) (*BoltIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}

	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	idx := &BoltIndex{
		db:       db,
		dim:      dim,
		model:    model,
		bySource: make(map[string]sourceEntry),
		srcLocks: make(map[string]*sync.Mutex),
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketRecords, bucketSources, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return idx.checkMeta(tx)
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	if err := idx.loadMirror(); err != nil {
		db.Close()
		return nil, err
	}

	return idx, nil
}

// checkMeta pins dimension and model on first open and verifies them on
// subsequent opens.
func (idx *BoltIndex) checkMeta(tx *bbolt.Tx) error {
	b := tx.Bucket(bucketMeta)

	if data := b.Get(keySchemaVersion); data != nil {
		var version int
		if err := json.Unmarshal(data, &version); err != nil {
			return fmt.Errorf("unreadable schema version: %v: %w", err, domain.ErrIndexCorruption)
		}
		if version > CurrentSchemaVersion {
			return fmt.Errorf("index created by newer version (v%d > v%d): %w", version, CurrentSchemaVersion, domain.ErrIndexCorruption)
		}
	} else {
		data, _ := json.Marshal(CurrentSchemaVersion)
		if err := b.Put(keySchemaVersion, data); err != nil {
			return err
		}
	}

	if data := b.Get(keyDimension); data != nil {
		var stored int
		if err := json.Unmarshal(data, &stored); err != nil {
			return fmt.Errorf("unreadable dimension: %v: %w", err, domain.ErrIndexCorruption)
		}
		if stored != idx.dim {
			return fmt.Errorf("index has dimension %d, configured %d: %w", stored, idx.dim, domain.ErrDimensionMismatch)
		}
	} else {
		data, _ := json.Marshal(idx.dim)
		if err := b.Put(keyDimension, data); err != nil {
			return err
		}
	}

	if data := b.Get(keyModel); data != nil {
		if stored := string(data); stored != idx.model {
			return fmt.Errorf("index built with model %q, configured %q: %w", stored, idx.model, domain.ErrDimensionMismatch)
		}
	} else {
		if err := b.Put(keyModel, []byte(idx.model)); err != nil {
			return err
		}
	}

	return nil
}

// loadMirror rebuilds the in-memory mirror from disk. Every record id
// named by a source manifest must resolve to a parseable record with a
// vector of the pinned dimension.
func (idx *BoltIndex) loadMirror() error {
	bySource := make(map[string]sourceEntry)

	err := idx.db.View(func(tx *bbolt.Tx) error {
		records := tx.Bucket(bucketRecords)
		sources := tx.Bucket(bucketSources)

		return sources.ForEach(func(k, v []byte) error {
			sourceID := string(k)

			var meta sourceMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return fmt.Errorf("unreadable manifest for %s: %v: %w", sourceID, err, domain.ErrIndexCorruption)
			}

			entry := sourceEntry{
				records:       make([]domain.VectorRecord, 0, len(meta.RecordIDs)),
				lastIndexedAt: time.Unix(meta.LastIndexedAt, 0),
			}
			for _, id := range meta.RecordIDs {
				data := records.Get([]byte(id))
				if data == nil {
					return fmt.Errorf("manifest for %s references missing record %s: %w", sourceID, id, domain.ErrIndexCorruption)
				}
				var rm recordMeta
				if err := json.Unmarshal(data, &rm); err != nil {
					return fmt.Errorf("unreadable record %s: %v: %w", id, err, domain.ErrIndexCorruption)
				}
				if len(rm.Vector) != idx.dim {
					return fmt.Errorf("record %s has dimension %d, expected %d: %w", id, len(rm.Vector), idx.dim, domain.ErrDimensionMismatch)
				}
				entry.records = append(entry.records, domain.VectorRecord{
					ID: id,
					Chunk: domain.Chunk{
						SourceID: rm.SourceID,
						Index:    rm.ChunkIndex,
						Text:     rm.Text,
						Start:    rm.Start,
						End:      rm.End,
					},
					Vector: rm.Vector,
				})
			}
			sort.Slice(entry.records, func(i, j int) bool {
				return entry.records[i].Chunk.Index < entry.records[j].Chunk.Index
			})
			bySource[sourceID] = entry
			return nil
		})
	})
	if err != nil {
		return err
	}

	idx.mu.Lock()
	idx.bySource = bySource
	idx.mu.Unlock()
	return nil
}

// sourceLock returns the mutex serializing writes for one source id.
func (idx *BoltIndex) sourceLock(sourceID string) *sync.Mutex {
	idx.lockMu.Lock()
	defer idx.lockMu.Unlock()
	l, ok := idx.srcLocks[sourceID]
	if !ok {
		l = &sync.Mutex{}
		idx.srcLocks[sourceID] = l
	}
	return l
}

// Upsert atomically replaces all records for a source. Readers observe
// either the previous complete set or the new one, never a mix. An
// empty records slice removes the source.
func (idx *BoltIndex) Upsert(sourceID string, records []domain.VectorRecord) (int, error) {
	for _, r := range records {
		if len(r.Vector) != idx.dim {
			return 0, fmt.Errorf("record %s has dimension %d, expected %d: %w", r.ID, len(r.Vector), idx.dim, domain.ErrDimensionMismatch)
		}
		if r.Chunk.SourceID != sourceID {
			return 0, fmt.Errorf("record %s belongs to source %q, not %q", r.ID, r.Chunk.SourceID, sourceID)
		}
	}

	if len(records) == 0 {
		return idx.Delete(sourceID)
	}

	staged := make([]domain.VectorRecord, len(records))
	copy(staged, records)
	sort.Slice(staged, func(i, j int) bool {
		return staged[i].Chunk.Index < staged[j].Chunk.Index
	})
	now := time.Now()

	lock := idx.sourceLock(sourceID)
	lock.Lock()
	defer lock.Unlock()

	err := idx.db.Update(func(tx *bbolt.Tx) error {
		recordsBucket := tx.Bucket(bucketRecords)
		sourcesBucket := tx.Bucket(bucketSources)

		if data := sourcesBucket.Get([]byte(sourceID)); data != nil {
			var old sourceMeta
			if err := json.Unmarshal(data, &old); err == nil {
				for _, id := range old.RecordIDs {
					if err := recordsBucket.Delete([]byte(id)); err != nil {
						return err
					}
				}
			}
		}

		recordIDs := make([]string, 0, len(staged))
		for _, r := range staged {
			data, err := json.Marshal(recordMeta{
				SourceID:   r.Chunk.SourceID,
				ChunkIndex: r.Chunk.Index,
				Start:      r.Chunk.Start,
				End:        r.Chunk.End,
				Text:       r.Chunk.Text,
				Vector:     r.Vector,
			})
			if err != nil {
				return err
			}
			if err := recordsBucket.Put([]byte(r.ID), data); err != nil {
				return err
			}
			recordIDs = append(recordIDs, r.ID)
		}

		manifest, err := json.Marshal(sourceMeta{
			RecordIDs:     recordIDs,
			LastIndexedAt: now.Unix(),
		})
		if err != nil {
			return err
		}
		return sourcesBucket.Put([]byte(sourceID), manifest)
	})
	if err != nil {
		return 0, err
	}

	idx.mu.Lock()
	idx.bySource[sourceID] = sourceEntry{records: staged, lastIndexedAt: now}
	idx.mu.Unlock()
	idx.generation.Add(1)

	return len(staged), nil
}

// Delete removes all records for a source and returns how many were
// removed. Deleting an unknown source is not an error.
func (idx *BoltIndex) Delete(sourceID string) (int, error) {
	lock := idx.sourceLock(sourceID)
	lock.Lock()
	defer lock.Unlock()

	removed := 0
	err := idx.db.Update(func(tx *bbolt.Tx) error {
		recordsBucket := tx.Bucket(bucketRecords)
		sourcesBucket := tx.Bucket(bucketSources)

		data := sourcesBucket.Get([]byte(sourceID))
		if data == nil {
			return nil
		}
		var meta sourceMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return fmt.Errorf("unreadable manifest for %s: %v: %w", sourceID, err, domain.ErrIndexCorruption)
		}
		for _, id := range meta.RecordIDs {
			if err := recordsBucket.Delete([]byte(id)); err != nil {
				return err
			}
		}
		removed = len(meta.RecordIDs)
		return sourcesBucket.Delete([]byte(sourceID))
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		idx.mu.Lock()
		delete(idx.bySource, sourceID)
		idx.mu.Unlock()
		idx.generation.Add(1)
	}

	return removed, nil
}

// Search ranks all records by cosine similarity against the query and
// returns the top k. Ties are broken by chunk index, then source id, so
// equal inputs always yield identical results.
func (idx *BoltIndex) Search(query []float32, topK int) ([]domain.ScoredChunk, error) {
	if len(query) != idx.dim {
		return nil, fmt.Errorf("query has dimension %d, expected %d: %w", len(query), idx.dim, domain.ErrDimensionMismatch)
	}
	if topK <= 0 {
		return []domain.ScoredChunk{}, nil
	}

	idx.mu.RLock()
	scored := make([]domain.ScoredChunk, 0, 64)
	for _, entry := range idx.bySource {
		for _, r := range entry.records {
			scored = append(scored, domain.ScoredChunk{
				Chunk: r.Chunk,
				Score: cosineSimilarity(query, r.Vector),
			})
		}
	}
	idx.mu.RUnlock()

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Chunk.Index != scored[j].Chunk.Index {
			return scored[i].Chunk.Index < scored[j].Chunk.Index
		}
		return scored[i].Chunk.SourceID < scored[j].Chunk.SourceID
	})

	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK], nil
}

// ListSources returns a summary per indexed source, sorted by source id.
func (idx *BoltIndex) ListSources() ([]domain.SourceSummary, error) {
	idx.mu.RLock()
	summaries := make([]domain.SourceSummary, 0, len(idx.bySource))
	for id, entry := range idx.bySource {
		summaries = append(summaries, domain.SourceSummary{
			SourceID:      id,
			ChunkCount:    len(entry.records),
			LastIndexedAt: entry.lastIndexedAt,
		})
	}
	idx.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].SourceID < summaries[j].SourceID
	})
	return summaries, nil
}

// Generation increases on every successful Upsert or Delete. Callers
// caching search results can use it to detect staleness.
func (idx *BoltIndex) Generation() uint64 {
	return idx.generation.Load()
}

func (idx *BoltIndex) Close() error {
	return idx.db.Close()
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
