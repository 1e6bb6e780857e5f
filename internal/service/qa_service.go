package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/makerstore/maker-bot/internal/domain"
	"github.com/makerstore/maker-bot/internal/port"
)

// QAService stores question/answer pairs with their embeddings and retrieves
// the best-practice answers nearest to a query. It holds no cache; QA pair
// lifetime is owned by the backing store.
type QAService struct {
	embedder port.Embedder
	store    port.VectorStore
}

// NewQAService creates a QA service over the given embedder and store.
func NewQAService(embedder port.Embedder, store port.VectorStore) *QAService {
	return &QAService{embedder: embedder, store: store}
}

// Add embeds the question and persists the pair. Returns the assigned id.
func (s *QAService) Add(ctx context.Context, question, answer string) (string, error) {
	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("%w: embed question: %w", port.ErrRetrieval, err)
	}

	id, err := s.store.Create(ctx, domain.VectorRecord{
		Vector: vector,
		Metadata: map[string]string{
			domain.MetaQuestion: question,
			domain.MetaAnswer:   answer,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: store pair: %w", port.ErrRetrieval, err)
	}

	slog.Info("stored QA pair", "id", id)
	return id, nil
}

// Retrieve embeds the query and returns the answers of the topK nearest
// pairs, best match first. An empty store yields an empty slice and no
// error: "no best practice found" is a normal outcome.
func (s *QAService) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", port.ErrRetrieval, err)
	}

	results, err := s.store.Find(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", port.ErrRetrieval, err)
	}

	answers := make([]string, 0, len(results))
	for _, r := range results {
		answers = append(answers, r.Record.Metadata[domain.MetaAnswer])
	}
	return answers, nil
}

// Get returns the stored QA pair for id.
func (s *QAService) Get(ctx context.Context, id string) (domain.QAPair, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.QAPair{}, err
	}
	return domain.QAPairFromRecord(rec), nil
}

// Edit replaces a pair's question and answer, regenerating the embedding so
// it never diverges from the question text.
func (s *QAService) Edit(ctx context.Context, id, question, answer string) error {
	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return fmt.Errorf("%w: embed question: %w", port.ErrRetrieval, err)
	}

	err = s.store.Update(ctx, id, domain.VectorRecord{
		Vector: vector,
		Metadata: map[string]string{
			domain.MetaQuestion: question,
			domain.MetaAnswer:   answer,
		},
	})
	if err != nil {
		return err
	}

	slog.Info("updated QA pair", "id", id)
	return nil
}

// Remove deletes the pair. Removing a missing id is not an error.
func (s *QAService) Remove(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
