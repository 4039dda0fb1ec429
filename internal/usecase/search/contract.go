package search

import (
	"context"

	"github.com/kailas-cloud/docsearch/internal/domain/collection/field"
	"github.com/kailas-cloud/docsearch/internal/engine"
)

// Repository defines the storage contract for search operations.
type Repository interface {
	// Execute runs a compiled query body. Errors keep the engine error in
	// their chain so the fielddata rejection can be recognized.
	Execute(ctx context.Context, collection string, body map[string]any) (*engine.SearchResponse, error)
	// Fields introspects the live mapping of a collection.
	Fields(ctx context.Context, collection string) (field.Catalog, error)
}
