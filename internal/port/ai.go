package port

import "context"

// Embedder converts text into a fixed-dimension vector.
// Implementations can target OpenAI, Ollama, or any compatible API.
type Embedder interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the length of the vectors Embed produces.
	Dimension() int
}

// Completer abstracts the chat-completion backend.
type Completer interface {
	// Complete sends a system prompt plus the user message and returns the
	// model's reply.
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}
