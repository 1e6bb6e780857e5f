package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/makerstore/maker-bot/internal/port"
)

func newTestProvider(baseURL string, timeout time.Duration) *OpenAIProvider {
	embed := EndpointConfig{BaseURL: baseURL, Model: "test-embed", APIKey: "test-key"}
	chat := EndpointConfig{BaseURL: baseURL, Model: "test-chat", APIKey: "test-key"}
	return NewOpenAIProvider(embed, chat, 3, timeout)
}

func TestOpenAIProvider_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing auth header, got %q", got)
		}

		var body struct {
			Model      string   `json:"model"`
			Input      []string `json:"input"`
			Dimensions int      `json:"dimensions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.Model != "test-embed" || len(body.Input) != 1 || body.Input[0] != "hello" {
			t.Errorf("unexpected request body: %+v", body)
		}
		if body.Dimensions != 3 {
			t.Errorf("expected dimensions 3, got %d", body.Dimensions)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.1, 0.2, 0.3}}},
		})
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, 5*time.Second)
	vec, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Errorf("unexpected vector: %v", vec)
	}
}

func TestOpenAIProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Role != "user" {
			t.Errorf("unexpected messages: %+v", body.Messages)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "110V"}},
			},
		})
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, 5*time.Second)
	reply, err := p.Complete(context.Background(), "you are a bot", "what voltage?")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if reply != "110V" {
		t.Errorf("unexpected reply: %q", reply)
	}
}

func TestOpenAIProvider_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "upstream overloaded", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{1, 0, 0}}},
		})
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, 30*time.Second)
	vec, err := p.Embed(context.Background(), "retry me")
	if err != nil {
		t.Fatalf("embed should succeed after retry: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("unexpected vector: %v", vec)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestOpenAIProvider_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad model", http.StatusBadRequest)
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, 5*time.Second)
	if _, err := p.Embed(context.Background(), "nope"); err == nil {
		t.Fatal("expected an error")
	}
	if calls.Load() != 1 {
		t.Errorf("4xx must not be retried, got %d calls", calls.Load())
	}
}

func TestOpenAIProvider_TimeoutSurfacesErrTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, 50*time.Millisecond)
	_, err := p.Embed(context.Background(), "slow")
	if !errors.Is(err, port.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}
