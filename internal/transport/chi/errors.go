package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kailas-cloud/ideasearch/internal/domain"
)

// ErrorCode is the machine-readable error class in API responses.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest           ErrorCode = "bad_request"
	CodeValidationFailed     ErrorCode = "validation_failed"
	CodeUnauthorized         ErrorCode = "unauthorized"
	CodeEmbeddingUnavailable ErrorCode = "embedding_unavailable"
	CodeRetrievalFailed      ErrorCode = "retrieval_failed"
	CodeTimeout              ErrorCode = "timeout"
	CodeInternalError        ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

var errorHandlers = []errorHandler{
	sentinelHandler(domain.ErrValidation, http.StatusBadRequest, CodeValidationFailed),
	sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusServiceUnavailable, CodeEmbeddingUnavailable),
	sentinelHandler(domain.ErrRetrieval, http.StatusBadGateway, CodeRetrievalFailed),
	sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout),
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a client-facing message without exposing internals.
// Validation errors describe the caller's input and are returned verbatim.
func safeDomainMessage(err error) string {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrEmbeddingUnavailable,
		domain.ErrRetrieval,
		context.DeadlineExceeded,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}
