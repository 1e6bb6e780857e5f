package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/makerstore/maker-bot/internal/service"
)

// ChatHandler exposes the chat endpoint.
type ChatHandler struct {
	chat *service.ChatService
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Register sets up chat routes.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Post("/ask", h.Ask)
}

// Ask handles a user question and returns the bot response. The response
// object always carries a bot_response on the success path; total completion
// failure is already folded into an apology by the service.
func (h *ChatHandler) Ask(c fiber.Ctx) error {
	var body struct {
		UserMessage string `json:"user_message"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	reply, err := h.chat.Ask(c.Context(), body.UserMessage)
	if err != nil {
		if errors.Is(err, service.ErrEmptyMessage) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_message is required"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.JSON(fiber.Map{"bot_response": reply})
}
