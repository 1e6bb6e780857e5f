package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/makerstore/maker-bot/internal/domain"
	"github.com/makerstore/maker-bot/internal/port"
)

// MemoryStore is an in-process VectorStore using brute-force cosine
// similarity. Records are kept in insertion order so that equal-score
// matches rank first-inserted first.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	records   []domain.VectorRecord
	byID      map[string]int
}

// NewMemoryStore creates an in-memory store for vectors of the given dimension.
func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		dimension: dimension,
		byID:      make(map[string]int),
	}
}

// Create persists a record, assigning a UUID when none is given. Writing an
// existing id replaces the record in place, keeping its insertion rank.
func (s *MemoryStore) Create(ctx context.Context, rec domain.VectorRecord) (string, error) {
	if len(rec.Vector) != s.dimension {
		return "", fmt.Errorf("%w: vector dimension %d, index dimension %d",
			port.ErrInvalidRecord, len(rec.Vector), s.dimension)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if i, ok := s.byID[rec.ID]; ok {
		s.records[i] = rec
		return rec.ID, nil
	}
	s.byID[rec.ID] = len(s.records)
	s.records = append(s.records, rec)
	return rec.ID, nil
}

// Get returns the record for id.
func (s *MemoryStore) Get(ctx context.Context, id string) (domain.VectorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return domain.VectorRecord{}, fmt.Errorf("%w: %s", port.ErrNotFound, id)
	}
	return s.records[i], nil
}

// Update replaces the vector and metadata of an existing record.
func (s *MemoryStore) Update(ctx context.Context, id string, rec domain.VectorRecord) error {
	if len(rec.Vector) != s.dimension {
		return fmt.Errorf("%w: vector dimension %d, index dimension %d",
			port.ErrInvalidRecord, len(rec.Vector), s.dimension)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", port.ErrNotFound, id)
	}
	rec.ID = id
	s.records[i] = rec
	return nil
}

// Delete removes the record. Deleting a missing id is a no-op.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[id]
	if !ok {
		return nil
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	delete(s.byID, id)
	for j := i; j < len(s.records); j++ {
		s.byID[s.records[j].ID] = j
	}
	return nil
}

// Find returns up to topK records ordered by descending cosine similarity.
func (s *MemoryStore) Find(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: vector dimension %d, index dimension %d",
			port.ErrInvalidQuery, len(vector), s.dimension)
	}
	if topK <= 0 {
		topK = port.DefaultTopK
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]domain.SearchResult, len(s.records))
	for i, rec := range s.records {
		results[i] = domain.SearchResult{Record: rec, Score: cosineSimilarity(vector, rec.Vector)}
	}
	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// EnsureIndex is a no-op: the in-memory index exists from construction.
func (s *MemoryStore) EnsureIndex(ctx context.Context) error {
	return nil
}

var _ port.VectorStore = (*MemoryStore)(nil)

// cosineSimilarity computes dot(a,b) / (|a| * |b|).
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
