package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/makerstore/maker-bot/internal/port"
)

// EndpointConfig holds the configuration for a single OpenAI-compatible
// endpoint.
type EndpointConfig struct {
	BaseURL string // e.g. https://api.openai.com/v1
	Model   string // e.g. text-embedding-3-small, gpt-4o-mini
	APIKey  string
}

// OpenAIProvider implements port.Embedder and port.Completer against an
// OpenAI-compatible REST API. Embeddings and completions may target
// different endpoints, models, and keys.
type OpenAIProvider struct {
	embed      EndpointConfig
	chat       EndpointConfig
	dimension  int
	callBudget time.Duration
	httpClient *http.Client
}

// NewOpenAIProvider creates a provider with separate embed/chat configs.
// Every external call is bounded by callTimeout.
func NewOpenAIProvider(embed, chat EndpointConfig, dimension int, callTimeout time.Duration) *OpenAIProvider {
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &OpenAIProvider{
		embed:      embed,
		chat:       chat,
		dimension:  dimension,
		callBudget: callTimeout,
		httpClient: &http.Client{},
	}
}

// Dimension returns the length of the vectors Embed produces.
func (o *OpenAIProvider) Dimension() int {
	return o.dimension
}

// Embed generates a vector embedding for the given text.
func (o *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]any{
		"model": o.embed.Model,
		"input": []string{text},
	}
	if o.dimension > 0 {
		payload["dimensions"] = o.dimension
	}

	body, err := o.post(ctx, o.embed, "/embeddings", payload)
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %w", port.ErrEmbedding, err)
	}

	var resp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("openai embed decode: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("openai embed: empty response")
	}

	return resp.Data[0].Embedding, nil
}

// Complete sends the system prompt plus the user message and returns the
// model's reply.
func (o *OpenAIProvider) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	payload := map[string]any{
		"model": o.chat.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userMessage},
		},
	}

	body, err := o.post(ctx, o.chat, "/chat/completions", payload)
	if err != nil {
		return "", fmt.Errorf("%w: openai: %w", port.ErrCompletion, err)
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("openai chat decode: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat: empty response")
	}

	return resp.Choices[0].Message.Content, nil
}

// post issues a JSON POST with the per-call timeout and bounded retry.
func (o *OpenAIProvider) post(ctx context.Context, cfg EndpointConfig, path string, payload any) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, o.callBudget)
	defer cancel()

	resp, err := doWithRetry(callCtx, o.httpClient, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, cfg.BaseURL+path, bytes.NewReader(payloadBytes))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
		}
		return req, nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", port.ErrTimeout, err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
