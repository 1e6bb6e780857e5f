package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/makerstore/maker-bot/internal/adapter/ai"
	"github.com/makerstore/maker-bot/internal/adapter/store"
	"github.com/makerstore/maker-bot/internal/handler"
	"github.com/makerstore/maker-bot/internal/port"
	"github.com/makerstore/maker-bot/internal/service"
	"github.com/makerstore/maker-bot/pkg/config"

	_ "github.com/lib/pq"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()

	slog.Info("🚀 Starting Maker Bot",
		"port", cfg.Port,
		"vector_backend", cfg.VectorBackend,
		"embed_model", cfg.EmbedModel,
		"chat_model", cfg.ChatModel,
	)

	// ── Vector store backend ─────────────────────────────────────────────
	vectorStore := buildVectorStore(cfg)

	if err := vectorStore.EnsureIndex(context.Background()); err != nil {
		slog.Error("failed to ensure vector index", "error", err)
		os.Exit(1)
	}

	// ── AI provider ──────────────────────────────────────────────────────
	openAI := ai.NewOpenAIProvider(
		ai.EndpointConfig{
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.EmbedModel,
			APIKey:  cfg.OpenAIAPIKey,
		},
		ai.EndpointConfig{
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.ChatModel,
			APIKey:  cfg.OpenAIAPIKey,
		},
		cfg.EmbeddingDimension,
		time.Duration(cfg.AICallTimeoutSeconds)*time.Second,
	)

	// ── Conversation history ─────────────────────────────────────────────
	history := service.NewHistory(cfg.HistoryPath, cfg.MaxHistoryTokens)
	if err := history.Load(); err != nil {
		slog.Error("failed to load conversation history", "error", err)
		os.Exit(1)
	}

	// ── Services ─────────────────────────────────────────────────────────
	qaService := service.NewQAService(openAI, vectorStore)
	chatService := service.NewChatService(qaService, openAI, history, cfg.RetrieveTopK)

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: time.Minute,
	}))

	// Health check
	app.Get("/api/v1/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"app":     cfg.AppName,
			"version": "1.0.0",
		})
	})

	// ── Routes ───────────────────────────────────────────────────────────
	api := app.Group("/api/v1")

	chatHandler := handler.NewChatHandler(chatService)
	chatHandler.Register(api)

	qaHandler := handler.NewQAHandler(qaService, vectorStore)
	qaHandler.Register(api)

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// buildVectorStore selects the backend from configuration. Components only
// ever see the port.VectorStore interface.
func buildVectorStore(cfg *config.Config) port.VectorStore {
	switch cfg.VectorBackend {
	case "postgres":
		pg, err := store.NewPostgresStore(cfg.DatabaseURL, cfg.EmbeddingDimension)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		return pg
	case "pinecone":
		pc, err := store.NewPineconeStore(store.PineconeConfig{
			APIKey:    cfg.PineconeAPIKey,
			IndexName: cfg.PineconeIndex,
			Cloud:     cfg.PineconeCloud,
			Region:    cfg.PineconeRegion,
			Dimension: cfg.EmbeddingDimension,
		})
		if err != nil {
			slog.Error("failed to configure Pinecone", "error", err)
			os.Exit(1)
		}
		return pc
	case "memory":
		return store.NewMemoryStore(cfg.EmbeddingDimension)
	default:
		slog.Error("unknown vector backend", "backend", cfg.VectorBackend)
		os.Exit(1)
		return nil
	}
}
