package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/makerstore/maker-bot/internal/domain"
	"github.com/makerstore/maker-bot/internal/port"
)

// PineconeConfig configures the Pinecone-backed VectorStore.
type PineconeConfig struct {
	APIKey     string
	IndexName  string
	BaseURL    string // control plane, default https://api.pinecone.io
	APIVersion string
	Cloud      string // serverless cloud, default aws
	Region     string // serverless region, default us-east-1
	Dimension  int
	Timeout    time.Duration
}

// PineconeStore is a VectorStore backed by a Pinecone serverless index,
// accessed over its REST API. Updates are upserts, which is how Pinecone
// models writes.
type PineconeStore struct {
	cfg  PineconeConfig
	http *http.Client
	host string // data-plane host, resolved by EnsureIndex
}

// NewPineconeStore creates a Pinecone-backed store. EnsureIndex must run
// before any data-plane call so the index host is known.
func NewPineconeStore(cfg PineconeConfig) (*PineconeStore, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing Pinecone API key")
	}
	if strings.TrimSpace(cfg.IndexName) == "" {
		return nil, fmt.Errorf("missing Pinecone index name")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.pinecone.io"
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2025-01"
	}
	if cfg.Cloud == "" {
		cfg.Cloud = "aws"
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &PineconeStore{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type pineconeVector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// EnsureIndex creates the serverless cosine index if it does not exist and
// resolves the data-plane host. Existing indexes and their data are left
// untouched.
func (s *PineconeStore) EnsureIndex(ctx context.Context) error {
	desc, err := s.describeIndex(ctx)
	if err == nil {
		s.host = desc.Host
		return nil
	}
	if !strings.Contains(err.Error(), "http 404") {
		return err
	}

	create := map[string]any{
		"name":      s.cfg.IndexName,
		"dimension": s.cfg.Dimension,
		"metric":    "cosine",
		"spec": map[string]any{
			"serverless": map[string]any{
				"cloud":  s.cfg.Cloud,
				"region": s.cfg.Region,
			},
		},
	}
	u := strings.TrimRight(s.cfg.BaseURL, "/") + "/indexes"
	if _, err := s.doJSON(ctx, http.MethodPost, u, create); err != nil {
		return err
	}

	// The host only becomes available once the index exists.
	desc, err = s.describeIndex(ctx)
	if err != nil {
		return err
	}
	s.host = desc.Host
	return nil
}

// Create upserts a record, assigning a UUID when none is given.
func (s *PineconeStore) Create(ctx context.Context, rec domain.VectorRecord) (string, error) {
	if len(rec.Vector) != s.cfg.Dimension {
		return "", fmt.Errorf("%w: vector dimension %d, index dimension %d",
			port.ErrInvalidRecord, len(rec.Vector), s.cfg.Dimension)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := s.upsert(ctx, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// Get fetches a record by id.
func (s *PineconeStore) Get(ctx context.Context, id string) (domain.VectorRecord, error) {
	host, err := s.dataHost()
	if err != nil {
		return domain.VectorRecord{}, err
	}

	u := host + "/vectors/fetch?ids=" + url.QueryEscape(id)
	raw, err := s.doJSON(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.VectorRecord{}, err
	}

	var out struct {
		Vectors map[string]pineconeVector `json:"vectors"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.VectorRecord{}, fmt.Errorf("pinecone fetch decode: %w", err)
	}
	v, ok := out.Vectors[id]
	if !ok {
		return domain.VectorRecord{}, fmt.Errorf("%w: %s", port.ErrNotFound, id)
	}
	return domain.VectorRecord{ID: v.ID, Vector: v.Values, Metadata: v.Metadata}, nil
}

// Update replaces an existing record via upsert, after confirming it exists
// so missing ids still surface ErrNotFound.
func (s *PineconeStore) Update(ctx context.Context, id string, rec domain.VectorRecord) error {
	if len(rec.Vector) != s.cfg.Dimension {
		return fmt.Errorf("%w: vector dimension %d, index dimension %d",
			port.ErrInvalidRecord, len(rec.Vector), s.cfg.Dimension)
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	rec.ID = id
	return s.upsert(ctx, rec)
}

// Delete removes a record. Pinecone deletes are idempotent.
func (s *PineconeStore) Delete(ctx context.Context, id string) error {
	host, err := s.dataHost()
	if err != nil {
		return err
	}
	u := host + "/vectors/delete"
	_, err = s.doJSON(ctx, http.MethodPost, u, map[string]any{"ids": []string{id}})
	return err
}

// Find queries the index for the topK nearest neighbors.
func (s *PineconeStore) Find(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if len(vector) != s.cfg.Dimension {
		return nil, fmt.Errorf("%w: vector dimension %d, index dimension %d",
			port.ErrInvalidQuery, len(vector), s.cfg.Dimension)
	}
	if topK <= 0 {
		topK = port.DefaultTopK
	}
	host, err := s.dataHost()
	if err != nil {
		return nil, err
	}

	req := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeValues":   true,
		"includeMetadata": true,
	}
	raw, err := s.doJSON(ctx, http.MethodPost, host+"/query", req)
	if err != nil {
		return nil, err
	}

	var out struct {
		Matches []struct {
			ID       string            `json:"id"`
			Score    float64           `json:"score"`
			Values   []float32         `json:"values"`
			Metadata map[string]string `json:"metadata"`
		} `json:"matches"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("pinecone query decode: %w", err)
	}

	results := make([]domain.SearchResult, len(out.Matches))
	for i, m := range out.Matches {
		results[i] = domain.SearchResult{
			Record: domain.VectorRecord{ID: m.ID, Vector: m.Values, Metadata: m.Metadata},
			Score:  m.Score,
		}
	}
	return results, nil
}

type pineconeIndexDescription struct {
	Name      string `json:"name"`
	Host      string `json:"host"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
}

func (s *PineconeStore) describeIndex(ctx context.Context) (*pineconeIndexDescription, error) {
	u := strings.TrimRight(s.cfg.BaseURL, "/") + "/indexes/" + s.cfg.IndexName
	raw, err := s.doJSON(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var out pineconeIndexDescription
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("pinecone describe_index decode: %w", err)
	}
	if strings.TrimSpace(out.Host) == "" {
		return nil, fmt.Errorf("%w: describe_index returned empty host", port.ErrStoreUnavailable)
	}
	return &out, nil
}

func (s *PineconeStore) upsert(ctx context.Context, rec domain.VectorRecord) error {
	host, err := s.dataHost()
	if err != nil {
		return err
	}
	body := map[string]any{
		"vectors": []pineconeVector{{ID: rec.ID, Values: rec.Vector, Metadata: rec.Metadata}},
	}
	_, err = s.doJSON(ctx, http.MethodPost, host+"/vectors/upsert", body)
	return err
}

func (s *PineconeStore) dataHost() (string, error) {
	if s.host == "" {
		return "", fmt.Errorf("%w: index host not resolved, run EnsureIndex first", port.ErrStoreUnavailable)
	}
	return "https://" + s.host, nil
}

// doJSON issues a request against the Pinecone API and returns the raw body.
func (s *PineconeStore) doJSON(ctx context.Context, method, url string, body any) ([]byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Api-Key", s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pinecone-Api-Version", s.cfg.APIVersion)

	resp, err := s.http.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: pinecone: %v", port.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: pinecone: %v", port.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: pinecone http %d: %s", port.ErrStoreUnavailable, resp.StatusCode, string(raw))
	}
	return raw, nil
}

var _ port.VectorStore = (*PineconeStore)(nil)
