package docsearch

import "github.com/kailas-cloud/docsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrDocumentNotFound       = domain.ErrDocumentNotFound
	ErrAlreadyExists          = domain.ErrAlreadyExists
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrTimeout                = domain.ErrTimeout
	ErrUnavailable            = domain.ErrUnavailable
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)

// QueryError carries the reason a search was rejected. It matches ErrInvalidRequest.
type QueryError = domain.QueryError
