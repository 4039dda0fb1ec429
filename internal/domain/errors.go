package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing collection, index or alias.
	ErrNotFound = errors.New("not found")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrAlreadyExists signals a duplicate resource, e.g. a rebuild target index that already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidRequest signals a malformed request or a query rejected by the engine.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrTimeout signals an engine operation that exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrUnavailable signals an unreachable backend.
	ErrUnavailable = errors.New("unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrJobNotFound signals an unknown or expired embedding job.
	ErrJobNotFound = errors.New("job not found")
)

// QueryError wraps ErrInvalidRequest with the engine's rejection reason.
type QueryError struct {
	Reason string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidRequest.Error(), e.Reason)
}

func (e *QueryError) Unwrap() error { return ErrInvalidRequest }

// NewQueryError creates a query error.
func NewQueryError(reason string) error {
	return &QueryError{Reason: reason}
}

// Invalidf formats a QueryError.
func Invalidf(format string, args ...any) error {
	return &QueryError{Reason: fmt.Sprintf(format, args...)}
}
