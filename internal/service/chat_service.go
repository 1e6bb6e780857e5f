package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/makerstore/maker-bot/internal/domain"
	"github.com/makerstore/maker-bot/internal/port"
)

// defaultTopK best practices are injected into each prompt.
const defaultTopK = 3

// apologyResponse is returned to the user whenever the completion call
// fails. Completion failures never surface as errors to the caller.
const apologyResponse = "I'm sorry, but I'm unable to respond at the moment. Please try again later."

// systemPromptTemplate frames the completion request. %s slots: user
// message, then the best-practice list.
const systemPromptTemplate = `You are Maker Bot, a customer service representative and sales assistant for a company called Maker Store, specializing in CNC routing machines and CNC controllers.
Your job is to answer customer questions about the products and services offered by Maker Store. If someone asks if you sell a product, you should respond as if you sell all of the products that Maker Store sells. If someone asks if you offer a service, you should respond as if you offer all of the services that Maker Store offers.
IMPORTANT: If someone asks about a product or service that Maker Store does not offer, you should respond telling them that Maker Store does not offer that product or service. We don't want to mislead customers. If someone asks about other brands, tell them we can't provide information about other brands and they should contact the original manufacturer.
Help answer this question:
%s
You should stick to the best practices as closely as possible. If you can't find a best practice that matches the customer's question, respond letting them know that you can't accurately answer their question.
Here is a list of best practices of how we normally respond to customers in similar scenarios:
%s
Please format your responses using whitespace and line breaks to make it easier for the customer to read.`

// ErrEmptyMessage is returned by Ask when the user message is blank.
var ErrEmptyMessage = errors.New("user message must not be empty")

// ChatService orchestrates one conversation turn: retrieve best practices,
// assemble the prompt, call the completion API, and record both sides of the
// exchange in the history. One ChatService serves one session; it makes no
// cross-session concurrency guarantees.
type ChatService struct {
	qa        *QAService
	completer port.Completer
	history   *History
	topK      int
}

// NewChatService creates the orchestrator. topK <= 0 falls back to the
// default of three best practices per prompt.
func NewChatService(qa *QAService, completer port.Completer, history *History, topK int) *ChatService {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &ChatService{qa: qa, completer: completer, history: history, topK: topK}
}

// Ask answers a user question. Retrieval failures degrade to an empty
// best-practice list rather than failing the turn; the prompt instructs the
// model to decline when no best practice matches. Completion failures are
// swallowed into a fixed apology. The user message and the reply are always
// appended to history, in that order, and the history is persisted.
func (s *ChatService) Ask(ctx context.Context, userMessage string) (string, error) {
	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		return "", ErrEmptyMessage
	}

	bestPractices, err := s.qa.Retrieve(ctx, userMessage, s.topK)
	if err != nil {
		slog.Warn("best-practice retrieval failed, continuing without context", "error", err)
		bestPractices = nil
	}

	reply, err := s.completer.Complete(ctx, buildSystemPrompt(userMessage, bestPractices), userMessage)
	if err != nil {
		slog.Error("completion failed", "error", err)
		reply = apologyResponse
	}

	s.history.Append(domain.RoleUser, userMessage)
	s.history.Append(domain.RoleAssistant, reply)
	if err := s.history.Persist(); err != nil {
		slog.Error("persist history failed", "error", err)
	}

	return reply, nil
}

// buildSystemPrompt fills the template with the user message and a numbered
// best-practice list.
func buildSystemPrompt(userMessage string, bestPractices []string) string {
	list := "(no best practices found)"
	if len(bestPractices) > 0 {
		var sb strings.Builder
		for i, bp := range bestPractices {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, bp)
		}
		list = strings.TrimRight(sb.String(), "\n")
	}
	return fmt.Sprintf(systemPromptTemplate, userMessage, list)
}
