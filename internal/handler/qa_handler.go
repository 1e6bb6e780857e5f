package handler

import (
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/makerstore/maker-bot/internal/port"
	"github.com/makerstore/maker-bot/internal/service"
)

// QAHandler exposes CRUD, bulk upload, and index administration for the
// best-practice knowledge base.
type QAHandler struct {
	qa    *service.QAService
	store port.VectorStore
}

// NewQAHandler creates a new QA handler.
func NewQAHandler(qa *service.QAService, store port.VectorStore) *QAHandler {
	return &QAHandler{qa: qa, store: store}
}

// Register sets up QA and index routes.
func (h *QAHandler) Register(router fiber.Router) {
	qa := router.Group("/qa")
	qa.Post("/", h.Add)
	qa.Get("/:id", h.Get)
	qa.Put("/:id", h.Update)
	qa.Delete("/:id", h.Delete)
	qa.Post("/upload", h.Upload)

	router.Post("/index/reinitialize", h.ReinitializeIndex)
}

type qaBody struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Add stores a new question/answer pair.
func (h *QAHandler) Add(c fiber.Ctx) error {
	var body qaBody
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(body.Question) == "" || strings.TrimSpace(body.Answer) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "question and answer are required"})
	}

	id, err := h.qa.Add(c.Context(), body.Question, body.Answer)
	if err != nil {
		slog.Error("add QA pair failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.JSON(fiber.Map{"status": "success", "id": id})
}

// Get returns a stored QA pair by id.
func (h *QAHandler) Get(c fiber.Ctx) error {
	pair, err := h.qa.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "QA pair not found"})
		}
		slog.Error("get QA pair failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(pair)
}

// Update replaces a pair's question and answer, regenerating its embedding.
func (h *QAHandler) Update(c fiber.Ctx) error {
	var body qaBody
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(body.Question) == "" || strings.TrimSpace(body.Answer) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "question and answer are required"})
	}

	if err := h.qa.Edit(c.Context(), c.Params("id"), body.Question, body.Answer); err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "QA pair not found"})
		}
		slog.Error("update QA pair failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.JSON(fiber.Map{"status": "success"})
}

// Delete removes a QA pair. Deleting a missing id still succeeds.
func (h *QAHandler) Delete(c fiber.Ctx) error {
	if err := h.qa.Remove(c.Context(), c.Params("id")); err != nil {
		slog.Error("delete QA pair failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(fiber.Map{"status": "success"})
}

// Upload ingests a CSV of question,answer rows. Rows with a blank question
// or answer are skipped, not errored; the import is not transactional, so
// partial success is expected.
func (h *QAHandler) Upload(c fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}

	f, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot open file"})
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	imported, skipped := 0, 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed CSV: " + err.Error()})
		}
		if len(row) < 2 || strings.TrimSpace(row[0]) == "" || strings.TrimSpace(row[1]) == "" {
			skipped++
			continue
		}

		if _, err := h.qa.Add(c.Context(), row[0], row[1]); err != nil {
			slog.Error("upload row failed", "question", row[0], "error", err)
			skipped++
			continue
		}
		imported++
	}

	return c.JSON(fiber.Map{"status": "success", "imported": imported, "skipped": skipped})
}

// ReinitializeIndex triggers idempotent index creation. A no-op when the
// index already exists.
func (h *QAHandler) ReinitializeIndex(c fiber.Ctx) error {
	if err := h.store.EnsureIndex(c.Context()); err != nil {
		slog.Error("ensure index failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.JSON(fiber.Map{"status": "success"})
}
