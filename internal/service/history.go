package service

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/makerstore/maker-bot/internal/domain"
)

// DefaultMaxHistoryTokens bounds a conversation transcript when no budget is
// configured.
const DefaultMaxHistoryTokens = 4096

// EstimateTokens is a deliberately cheap proxy for real tokenization:
// word count plus character count. It is monotonic with text length, which
// is all the eviction policy needs. Swap this out for a real tokenizer
// without touching eviction.
func EstimateTokens(content string) int {
	return len(strings.Fields(content)) + len(content)
}

// History is a bounded, ordered conversation transcript. The sum of
// estimated tokens over retained messages never exceeds the budget after a
// mutation; enforcement evicts from the front (oldest first). One History
// belongs to one session; the mutex guards the load-modify-persist cycle
// against the hosting layer reusing an instance.
type History struct {
	mu         sync.Mutex
	path       string
	maxTokens  int
	messages   []domain.Message
	tokenCount int
}

// NewHistory creates a history persisted at path with the given token budget.
func NewHistory(path string, maxTokens int) *History {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxHistoryTokens
	}
	return &History{path: path, maxTokens: maxTokens}
}

// Append adds a message to the end of the transcript and enforces the token
// budget. Eviction always targets the oldest message, even when the new
// message alone is large; the system message gets no special protection.
func (h *History) Append(role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, domain.Message{Role: role, Content: content})
	h.tokenCount += EstimateTokens(content)
	h.enforceBudget()
}

// enforceBudget evicts oldest messages until the running total fits.
// Caller must hold the mutex.
func (h *History) enforceBudget() {
	for h.tokenCount > h.maxTokens && len(h.messages) > 0 {
		removed := h.messages[0]
		h.messages = h.messages[1:]
		h.tokenCount -= EstimateTokens(removed.Content)
		slog.Debug("evicted oldest message from history",
			"role", removed.Role, "token_count", h.tokenCount)
	}
}

// Messages returns a copy of the transcript, oldest first.
func (h *History) Messages() []domain.Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]domain.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// TokenCount returns the current estimated token total.
func (h *History) TokenCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tokenCount
}

// Len returns the number of retained messages.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// Load reads the transcript from disk, replacing the in-memory state. A
// missing file yields an empty history, not an error. The token counter is
// recomputed from content rather than trusted from any cache.
func (h *History) Load() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := os.ReadFile(h.path)
	if os.IsNotExist(err) {
		h.messages = nil
		h.tokenCount = 0
		return nil
	}
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	var msgs []domain.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return fmt.Errorf("decode history: %w", err)
	}

	h.messages = msgs
	h.tokenCount = 0
	for _, m := range h.messages {
		h.tokenCount += EstimateTokens(m.Content)
	}
	h.enforceBudget()
	return nil
}

// Persist writes the whole transcript as an atomic replace: serialize to a
// temp file in the same directory, then rename over the previous state.
func (h *History) Persist() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	msgs := h.messages
	if msgs == nil {
		msgs = []domain.Message{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	dir := filepath.Dir(h.path)
	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("create temp history: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp history: %w", err)
	}
	if err := os.Rename(tmp.Name(), h.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}

// Clear resets the transcript and persists the empty state.
func (h *History) Clear() error {
	h.mu.Lock()
	h.messages = nil
	h.tokenCount = 0
	h.mu.Unlock()
	return h.Persist()
}
