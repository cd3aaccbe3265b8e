// Package embedding is the single entry point the piece store uses to turn text into vectors.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pieces/internal/domain"
)

// Gateway binds an embedding backend to one model. Errors from the backend are
// returned wrapped but unchanged in kind; there is no retry or fallback.
type Gateway struct {
	backend domain.EmbeddingBackend
	model   string
	logger  *zap.Logger
}

// NewGateway creates a gateway for the given model.
func NewGateway(backend domain.EmbeddingBackend, model string, logger *zap.Logger) (*Gateway, error) {
	if backend == nil {
		return nil, errors.New("embedding backend is required")
	}
	if model == "" {
		return nil, errors.New("embedding model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{backend: backend, model: model, logger: logger}, nil
}

// Model returns the configured embedding model name.
func (g *Gateway) Model() string { return g.model }

// Embed returns the vector for one text.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.call(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one vector per text in order using a single backend call.
// An empty batch returns an empty result without contacting the backend.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return g.call(ctx, texts)
}

func (g *Gateway) call(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	res, err := g.backend.Embed(ctx, g.model, texts)
	if err != nil {
		g.logger.Error("Embedding request failed",
			zap.String("model", g.model),
			zap.Int("texts", len(texts)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed: backend returned %d vectors for %d texts: %w",
			len(res.Embeddings), len(texts), domain.ErrEmbeddingProviderError)
	}

	g.logger.Debug("Embedding request completed",
		zap.String("model", g.model),
		zap.Int("texts", len(texts)),
		zap.Int("total_tokens", res.TotalTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return res.Embeddings, nil
}
