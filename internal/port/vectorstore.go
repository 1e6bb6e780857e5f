package port

import (
	"context"

	"github.com/makerstore/maker-bot/internal/domain"
)

// DefaultTopK is used when a caller passes a non-positive topK to Find.
const DefaultTopK = 10

// VectorStore abstracts a similarity-search backend (in-memory, pgvector,
// Pinecone). All backends store VectorRecords against a cosine index of a
// fixed dimension and return descending-similarity matches with ties broken
// by insertion order.
type VectorStore interface {
	// Create persists a new record. If the record carries no ID the store
	// assigns one and returns it. Fails with ErrInvalidRecord on a vector
	// dimension mismatch, ErrStoreUnavailable if the backend is unreachable.
	Create(ctx context.Context, rec domain.VectorRecord) (string, error)

	// Get returns the record for id, or ErrNotFound.
	Get(ctx context.Context, id string) (domain.VectorRecord, error)

	// Update replaces the vector and metadata of an existing record.
	// Backends without partial update may implement this as an upsert.
	// Fails with ErrNotFound when the record does not exist.
	Update(ctx context.Context, id string, rec domain.VectorRecord) error

	// Delete removes the record. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// Find returns up to topK matches ordered by descending similarity.
	// Fails with ErrInvalidQuery on a query dimension mismatch.
	Find(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error)

	// EnsureIndex creates the similarity index if absent. Idempotent; never
	// destroys existing data.
	EnsureIndex(ctx context.Context) error
}
