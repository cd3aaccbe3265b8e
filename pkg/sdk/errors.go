package pieces

import "github.com/kailas-cloud/pieces/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotInitialized          = domain.ErrNotInitialized
	ErrPieceNotFound           = domain.ErrPieceNotFound
	ErrBackendUnavailable      = domain.ErrBackendUnavailable
	ErrInvalidInput            = domain.ErrInvalidInput
	ErrUnsupportedFilter       = domain.ErrUnsupportedFilter
	ErrEmbeddingProviderError  = domain.ErrEmbeddingProviderError
	ErrGenerationProviderError = domain.ErrGenerationProviderError
)
