package ideasearch

import "github.com/kailas-cloud/ideasearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation           = domain.ErrValidation
	ErrEmbeddingUnavailable = domain.ErrEmbeddingUnavailable
	ErrRetrieval            = domain.ErrRetrieval
	ErrUnknownProvider      = domain.ErrUnknownProvider
	ErrVectorDimMismatch    = domain.ErrVectorDimMismatch
	ErrProviderAuth         = domain.ErrProviderAuth
)
