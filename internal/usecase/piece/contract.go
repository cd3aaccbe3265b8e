package piece

import (
	"context"

	"github.com/kailas-cloud/pieces/internal/vectorindex"
)

// Embedder turns text into vectors with the configured embedding model.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is the vector index the store keeps its collection in.
type Index = vectorindex.Index
