package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/makerstore/maker-bot/internal/adapter/store"
	"github.com/makerstore/maker-bot/internal/service"
)

type fakeEmbedder struct{}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	// Deterministic toy embedding so every question gets a valid vector.
	var sum float32
	for _, r := range text {
		sum += float32(r)
	}
	return []float32{sum, float32(len(text)), 1}, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }

func newTestApp(t *testing.T) (*fiber.App, *service.QAService) {
	t.Helper()
	memStore := store.NewMemoryStore(3)
	qa := service.NewQAService(&fakeEmbedder{}, memStore)

	app := fiber.New()
	api := app.Group("/api/v1")
	NewQAHandler(qa, memStore).Register(api)
	return app, qa
}

func TestQAHandler_AddAndGet(t *testing.T) {
	app, _ := newTestApp(t)

	body := `{"question":"What voltage does the X1 use?","answer":"110V"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/qa/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out struct {
		Status string `json:"status"`
		ID     string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Status != "success" || out.ID == "" {
		t.Fatalf("unexpected response: %+v", out)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/qa/"+out.ID, nil)
	getResp, err := app.Test(getReq)
	if err != nil {
		t.Fatalf("get request failed: %v", err)
	}
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", getResp.StatusCode)
	}

	var pair struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	if err := json.NewDecoder(getResp.Body).Decode(&pair); err != nil {
		t.Fatalf("decode pair: %v", err)
	}
	if pair.Question != "What voltage does the X1 use?" || pair.Answer != "110V" {
		t.Errorf("unexpected pair: %+v", pair)
	}
}

func TestQAHandler_AddRejectsBlankFields(t *testing.T) {
	app, _ := newTestApp(t)

	for _, body := range []string{
		`{"question":"","answer":"A"}`,
		`{"question":"Q","answer":""}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/qa/", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400 for %s, got %d", body, resp.StatusCode)
		}
	}
}

func TestQAHandler_GetMissingIs404(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/qa/does-not-exist", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestQAHandler_DeleteIdempotent(t *testing.T) {
	app, qa := newTestApp(t)

	id, err := qa.Add(context.Background(), "Q", "A")
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/qa/"+id, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("delete %d: expected 200, got %d", i+1, resp.StatusCode)
		}
	}
}

func TestQAHandler_UploadSkipsBlankRows(t *testing.T) {
	app, _ := newTestApp(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "qa.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write([]byte("Q1,A1\n,A2\nQ3,\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/qa/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out struct {
		Imported int `json:"imported"`
		Skipped  int `json:"skipped"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Imported != 1 || out.Skipped != 2 {
		t.Errorf("expected 1 imported / 2 skipped, got %+v", out)
	}
}

func TestQAHandler_ReinitializeIndex(t *testing.T) {
	app, _ := newTestApp(t)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/index/reinitialize", nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
	}
}
