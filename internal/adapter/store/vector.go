package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/makerstore/maker-bot/internal/domain"
	"github.com/makerstore/maker-bot/internal/port"
)

// Find performs a cosine similarity search via the pgvector <=> operator.
func (s *PostgresStore) Find(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: vector dimension %d, index dimension %d",
			port.ErrInvalidQuery, len(vector), s.dimension)
	}
	if topK <= 0 {
		topK = port.DefaultTopK
	}

	vectorStr := vectorToString(vector)
	query := `SELECT id, vector::text, metadata,
	                 1 - (vector <=> $1::vector) AS score
	          FROM qa_vectors
	          ORDER BY vector <=> $1::vector, created_at
	          LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, vectorStr, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: search similar: %v", port.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var sr domain.SearchResult
		var vecStr string
		var meta []byte
		if err := rows.Scan(&sr.Record.ID, &vecStr, &meta, &sr.Score); err != nil {
			return nil, fmt.Errorf("scan similar: %w", err)
		}
		if sr.Record.Vector, err = vectorFromString(vecStr); err != nil {
			return nil, fmt.Errorf("parse stored vector: %w", err)
		}
		if err := json.Unmarshal(meta, &sr.Record.Metadata); err != nil {
			return nil, fmt.Errorf("parse stored metadata: %w", err)
		}
		results = append(results, sr)
	}
	return results, rows.Err()
}

// EnsureIndex creates the pgvector extension, table, and cosine index if
// absent. Safe to run repeatedly; never drops existing data.
func (s *PostgresStore) EnsureIndex(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS qa_vectors (
			id UUID PRIMARY KEY,
			vector vector(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, s.dimension),
		`CREATE INDEX IF NOT EXISTS qa_vectors_cosine_idx
		 ON qa_vectors USING ivfflat (vector vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: ensure index: %v", port.ErrStoreUnavailable, err)
		}
	}
	return nil
}

// vectorToString converts a float32 slice to pgvector text format: [0.1,0.2].
func vectorToString(v []float32) string {
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = fmt.Sprintf("%g", val)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// vectorFromString parses pgvector text format back into a float32 slice.
func vectorFromString(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("vector component %d: %w", i, err)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

var _ port.VectorStore = (*PostgresStore)(nil)
