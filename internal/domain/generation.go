package domain

import "context"

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat turn sent to the generation backend.
type Message struct {
	Role    string
	Content string
}

// ChatResponse is the generation backend's reply.
type ChatResponse struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// Generator produces a chat completion with the named model.
type Generator interface {
	Chat(ctx context.Context, model string, messages []Message) (ChatResponse, error)
}
