// Package errmap translates engine errors into domain sentinels.
package errmap

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/engine"
)

var table = []struct {
	from error
	to   error
}{
	{engine.ErrDocumentNotFound, domain.ErrDocumentNotFound},
	{engine.ErrIndexNotFound, domain.ErrNotFound},
	{engine.ErrAliasNotFound, domain.ErrNotFound},
	{engine.ErrIndexExists, domain.ErrAlreadyExists},
	{engine.ErrConflict, domain.ErrAlreadyExists},
	{engine.ErrBadRequest, domain.ErrInvalidRequest},
	{engine.ErrTimeout, domain.ErrTimeout},
	{engine.ErrUnavailable, domain.ErrUnavailable},
}

// FromEngine wraps err with the matching domain sentinel.
// The engine error stays in the chain so callers can still inspect it.
func FromEngine(err error) error {
	if err == nil {
		return nil
	}
	for _, m := range table {
		if errors.Is(err, m.from) {
			return fmt.Errorf("%w: %w", m.to, err)
		}
	}
	return err
}
