package port

import "errors"

// Sentinel errors used across ports.
var (
	ErrNotFound         = errors.New("record not found")
	ErrInvalidRecord    = errors.New("invalid record")
	ErrInvalidQuery     = errors.New("invalid query")
	ErrStoreUnavailable = errors.New("vector store unavailable")
	ErrEmbedding        = errors.New("embedding failed")
	ErrCompletion       = errors.New("completion failed")
	ErrRetrieval        = errors.New("retrieval failed")
	ErrTimeout          = errors.New("external call timed out")
)
