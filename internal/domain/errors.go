package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals empty or malformed input.
	ErrValidation = errors.New("validation error")
	// ErrEmbeddingUnavailable signals that every configured provider exhausted its retries.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrRetrieval signals a backing store failure during retrieval.
	ErrRetrieval = errors.New("retrieval error")
	// ErrScoringDegraded signals that one ranking signal is missing and fusion ran on the rest.
	ErrScoringDegraded = errors.New("scoring degraded")
	// ErrGarbageQuery signals a degenerate query rejected before retrieval. Not a failure.
	ErrGarbageQuery = errors.New("garbage query")

	// ErrEmbeddingProviderError signals a single embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrProviderAuth signals rejected provider credentials.
	ErrProviderAuth = errors.New("provider authentication failed")
	// ErrUnknownProvider signals a provider hint that is not configured.
	ErrUnknownProvider = errors.New("unknown embedding provider")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)

// ValidationError carries the offending field. Unwraps to ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidation creates a validation error for a field.
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// RetrievalError wraps a backing store failure with the failed operation.
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrRetrieval.Error(), e.Op, e.Err)
}

// Is reports ErrRetrieval so callers can match the class and the cause.
func (e *RetrievalError) Is(target error) bool { return target == ErrRetrieval }

func (e *RetrievalError) Unwrap() error { return e.Err }

// NewRetrieval wraps err as a retrieval failure of op.
func NewRetrieval(op string, err error) error {
	return &RetrievalError{Op: op, Err: err}
}

// ProviderErrorKind classifies provider failures for retry decisions.
type ProviderErrorKind string

// Provider error kinds.
const (
	ProviderErrAuth      ProviderErrorKind = "auth"
	ProviderErrRateLimit ProviderErrorKind = "rate_limit"
	ProviderErrNetwork   ProviderErrorKind = "network"
	ProviderErrOther     ProviderErrorKind = "other"
)

// ProviderError is a classified failure returned by one embedding backend.
type ProviderError struct {
	Provider string
	Kind     ProviderErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s (%s): %v", ErrEmbeddingProviderError.Error(), e.Provider, e.Kind, e.Err)
}

// Is matches ErrEmbeddingProviderError plus the sentinel of its kind.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrEmbeddingProviderError:
		return true
	case ErrProviderAuth:
		return e.Kind == ProviderErrAuth
	case ErrRateLimited:
		return e.Kind == ProviderErrRateLimit
	}
	return false
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt against the same provider can succeed.
func (e *ProviderError) Retryable() bool {
	return e.Kind != ProviderErrAuth
}

// KindFromStatus classifies an HTTP status code returned by a provider.
func KindFromStatus(status int) ProviderErrorKind {
	switch {
	case status == 401 || status == 403:
		return ProviderErrAuth
	case status == 429:
		return ProviderErrRateLimit
	case status >= 500 || status == 408:
		return ProviderErrNetwork
	}
	return ProviderErrOther
}
