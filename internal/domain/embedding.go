package domain

import "context"

// EmbeddingBackend turns texts into vectors with the named model, one vector per input in order.
type EmbeddingBackend interface {
	Embed(ctx context.Context, model string, input []string) (EmbeddingResult, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the vectors and token usage through the decorator chain.
type EmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}
