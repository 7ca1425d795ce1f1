package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Memory is an in-memory Store. It backs unit tests and small local setups
// where running Postgres or Qdrant is not worth the trouble.
//
// Memory is safe for concurrent use.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	dimension int
	records   map[string]Record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]*memoryCollection)}
}

// CreateCollection creates or resets a collection.
func (m *Memory) CreateCollection(_ context.Context, name string, dimension int, reset bool) error {
	if dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", dimension)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.collections[name]; ok && !reset {
		if existing.dimension != dimension {
			return fmt.Errorf("collection %q has dimension %d, requested %d: %w",
				name, existing.dimension, dimension, ErrDimensionMismatch)
		}
		return nil
	}

	m.collections[name] = &memoryCollection{
		dimension: dimension,
		records:   make(map[string]Record),
	}
	return nil
}

// DeleteCollection removes a collection if present.
func (m *Memory) DeleteCollection(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, name)
	return nil
}

// CollectionExists reports whether a collection exists.
func (m *Memory) CollectionExists(_ context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.collections[name]
	return ok, nil
}

// CollectionInfo returns dimension and record count.
func (m *Memory) CollectionInfo(_ context.Context, name string) (*CollectionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	coll, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %q: %w", name, ErrCollectionNotFound)
	}
	return &CollectionInfo{
		Name:      name,
		Dimension: coll.dimension,
		Records:   int64(len(coll.records)),
	}, nil
}

// Upsert writes records keyed by id.
func (m *Memory) Upsert(_ context.Context, name string, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("collection %q: %w", name, ErrCollectionNotFound)
	}

	for _, rec := range records {
		if len(rec.Vector) != coll.dimension {
			return fmt.Errorf("record %q has dimension %d, collection %q wants %d: %w",
				rec.ID, len(rec.Vector), name, coll.dimension, ErrDimensionMismatch)
		}
		coll.records[rec.ID] = rec
	}
	return nil
}

// Search returns up to limit records by descending cosine similarity.
func (m *Memory) Search(_ context.Context, name string, vector []float32, limit int) ([]ScoredRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	coll, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %q: %w", name, ErrCollectionNotFound)
	}
	if limit <= 0 {
		return nil, nil
	}

	results := make([]ScoredRecord, 0, len(coll.records))
	for _, rec := range coll.records {
		results = append(results, ScoredRecord{
			ID:       rec.ID,
			Text:     rec.Text,
			Metadata: rec.Metadata,
			Score:    cosineSimilarity(vector, rec.Vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
