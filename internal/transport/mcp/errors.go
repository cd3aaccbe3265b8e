// Package mcp exposes the piece store and the RAG pipeline as Model Context Protocol tools.
package mcp

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/pieces/internal/domain"
)

var (
	// ErrMissingPieceService is returned when the piece service is not provided.
	ErrMissingPieceService = errors.New("mcp: piece service is required")
	// ErrMissingRagService is returned when the RAG service is not provided.
	ErrMissingRagService = errors.New("mcp: rag service is required")
)

// toolError marks an unreachable or uninitialized index so clients can tell it from bad input.
func toolError(op string, err error) error {
	if errors.Is(err, domain.ErrNotInitialized) || errors.Is(err, domain.ErrBackendUnavailable) {
		return fmt.Errorf("service unavailable: %s: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
