package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/makerstore/maker-bot/internal/domain"
	"github.com/makerstore/maker-bot/internal/port"
)

// PostgresStore is a VectorStore backed by Postgres with the pgvector
// extension. Ties on similarity are broken by created_at, so first-inserted
// records rank higher.
type PostgresStore struct {
	db        *sql.DB
	dimension int
}

// NewPostgresStore opens a connection pool and verifies it.
func NewPostgresStore(databaseURL string, dimension int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%w: ping database: %v", port.ErrStoreUnavailable, err)
	}

	return &PostgresStore{db: db, dimension: dimension}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Create inserts a record, assigning a UUID when none is given. Inserting an
// existing id replaces its vector and metadata.
func (s *PostgresStore) Create(ctx context.Context, rec domain.VectorRecord) (string, error) {
	if len(rec.Vector) != s.dimension {
		return "", fmt.Errorf("%w: vector dimension %d, index dimension %d",
			port.ErrInvalidRecord, len(rec.Vector), s.dimension)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return "", fmt.Errorf("%w: marshal metadata: %v", port.ErrInvalidRecord, err)
	}

	query := `INSERT INTO qa_vectors (id, vector, metadata)
	          VALUES ($1, $2::vector, $3)
	          ON CONFLICT (id) DO UPDATE SET
	              vector = EXCLUDED.vector,
	              metadata = EXCLUDED.metadata`

	if _, err := s.db.ExecContext(ctx, query, rec.ID, vectorToString(rec.Vector), meta); err != nil {
		return "", fmt.Errorf("%w: insert vector: %v", port.ErrStoreUnavailable, err)
	}
	return rec.ID, nil
}

// Get retrieves a record by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (domain.VectorRecord, error) {
	query := `SELECT id, vector::text, metadata FROM qa_vectors WHERE id = $1`

	var rec domain.VectorRecord
	var vectorStr string
	var meta []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(&rec.ID, &vectorStr, &meta)
	if err == sql.ErrNoRows {
		return domain.VectorRecord{}, fmt.Errorf("%w: %s", port.ErrNotFound, id)
	}
	if err != nil {
		return domain.VectorRecord{}, fmt.Errorf("%w: get vector: %v", port.ErrStoreUnavailable, err)
	}

	rec.Vector, err = vectorFromString(vectorStr)
	if err != nil {
		return domain.VectorRecord{}, fmt.Errorf("parse stored vector: %w", err)
	}
	if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
		return domain.VectorRecord{}, fmt.Errorf("parse stored metadata: %w", err)
	}
	return rec, nil
}

// Update replaces the vector and metadata of an existing record.
func (s *PostgresStore) Update(ctx context.Context, id string, rec domain.VectorRecord) error {
	if len(rec.Vector) != s.dimension {
		return fmt.Errorf("%w: vector dimension %d, index dimension %d",
			port.ErrInvalidRecord, len(rec.Vector), s.dimension)
	}

	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("%w: marshal metadata: %v", port.ErrInvalidRecord, err)
	}

	query := `UPDATE qa_vectors SET vector = $2::vector, metadata = $3 WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query, id, vectorToString(rec.Vector), meta)
	if err != nil {
		return fmt.Errorf("%w: update vector: %v", port.ErrStoreUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", port.ErrNotFound, id)
	}
	return nil
}

// Delete removes a record. Deleting a missing id is not an error.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM qa_vectors WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%w: delete vector: %v", port.ErrStoreUnavailable, err)
	}
	return nil
}
