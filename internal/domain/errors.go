package domain

import "errors"

var (
	// ErrNotInitialized signals a data operation before the piece store finished Init.
	ErrNotInitialized = errors.New("piece store not initialized")
	// ErrPieceNotFound signals a missing piece.
	ErrPieceNotFound = errors.New("piece not found")
	// ErrBackendUnavailable signals that the vector index could not be reached.
	ErrBackendUnavailable = errors.New("vector index unavailable")
	// ErrInvalidInput signals a request that failed validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupportedFilter signals a filter the vector index cannot express.
	ErrUnsupportedFilter = errors.New("unsupported filter")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals a chat completion provider failure.
	ErrGenerationProviderError = errors.New("generation provider error")
)
