package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/makerstore/maker-bot/internal/domain"
)

func historyPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "history.json")
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"", 0},
		{"hello", 6},           // 1 word + 5 chars
		{"hello world", 13},    // 2 words + 11 chars
		{"  spaced  out ", 16}, // 2 words + 14 chars
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.content); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.content, got, tt.want)
		}
	}
}

func TestHistory_AppendKeepsBudgetInvariant(t *testing.T) {
	h := NewHistory(historyPath(t), 100)

	for i := 0; i < 20; i++ {
		h.Append(domain.RoleUser, strings.Repeat("x", 30))

		total := 0
		for _, m := range h.Messages() {
			total += EstimateTokens(m.Content)
		}
		if total > 100 {
			t.Fatalf("budget exceeded after append %d: %d tokens", i, total)
		}
		if total != h.TokenCount() {
			t.Fatalf("counter drift: recomputed %d, cached %d", total, h.TokenCount())
		}
	}
}

func TestHistory_EvictsOldestFirst(t *testing.T) {
	// Each message estimates to 1 word + 1 char = 2 tokens. Budget of 6
	// holds exactly three.
	h := NewHistory(historyPath(t), 6)
	h.Append(domain.RoleUser, "A")
	h.Append(domain.RoleUser, "B")
	h.Append(domain.RoleUser, "C")

	h.Append(domain.RoleUser, "D")

	msgs := h.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 retained messages, got %d", len(msgs))
	}
	want := []string{"B", "C", "D"}
	for i, w := range want {
		if msgs[i].Content != w {
			t.Fatalf("expected %v, got %v at %d", w, msgs[i].Content, i)
		}
	}
}

func TestHistory_SystemMessageNotProtected(t *testing.T) {
	h := NewHistory(historyPath(t), 6)
	h.Append(domain.RoleSystem, "S")
	h.Append(domain.RoleUser, "A")
	h.Append(domain.RoleUser, "B")
	h.Append(domain.RoleUser, "C")

	msgs := h.Messages()
	if msgs[0].Role == domain.RoleSystem {
		t.Error("system message should have been evicted as the oldest entry")
	}
}

func TestHistory_OversizedAppendEvictsEverythingElse(t *testing.T) {
	h := NewHistory(historyPath(t), 20)
	h.Append(domain.RoleUser, "hi")
	// One message over the whole budget: older entries go first, then the
	// big message itself.
	h.Append(domain.RoleUser, strings.Repeat("y", 40))

	if h.Len() != 0 {
		t.Errorf("expected empty history, got %d messages", h.Len())
	}
	if h.TokenCount() != 0 {
		t.Errorf("expected zero token count, got %d", h.TokenCount())
	}
}

func TestHistory_PersistLoadRoundTrip(t *testing.T) {
	path := historyPath(t)

	h := NewHistory(path, 4096)
	h.Append(domain.RoleSystem, "You are Maker Bot.")
	h.Append(domain.RoleUser, "what voltage does the X1 use?")
	h.Append(domain.RoleAssistant, "110V")
	if err := h.Persist(); err != nil {
		t.Fatalf("persist failed: %v", err)
	}

	reloaded := NewHistory(path, 4096)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	orig, got := h.Messages(), reloaded.Messages()
	if len(got) != len(orig) {
		t.Fatalf("expected %d messages, got %d", len(orig), len(got))
	}
	for i := range orig {
		if got[i] != orig[i] {
			t.Errorf("message %d: expected %+v, got %+v", i, orig[i], got[i])
		}
	}
	if reloaded.TokenCount() != h.TokenCount() {
		t.Errorf("token count not recomputed: expected %d, got %d",
			h.TokenCount(), reloaded.TokenCount())
	}
}

func TestHistory_LoadMissingFileIsEmpty(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "does-not-exist.json"), 4096)

	if err := h.Load(); err != nil {
		t.Fatalf("load of missing file should not fail: %v", err)
	}
	if h.Len() != 0 {
		t.Errorf("expected empty history, got %d messages", h.Len())
	}
}

func TestHistory_PersistReplacesWholeFile(t *testing.T) {
	path := historyPath(t)

	h := NewHistory(path, 4096)
	h.Append(domain.RoleUser, "first")
	h.Append(domain.RoleUser, "second")
	if err := h.Persist(); err != nil {
		t.Fatalf("persist failed: %v", err)
	}

	if err := h.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("expected full replace with empty array, got %s", data)
	}
}
