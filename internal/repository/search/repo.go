package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/docsearch/internal/domain/collection/field"
	"github.com/kailas-cloud/docsearch/internal/engine"
	"github.com/kailas-cloud/docsearch/internal/repository/errmap"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	Search(ctx context.Context, index string, body map[string]any) (*engine.SearchResponse, error)
	GetMapping(ctx context.Context, index string) (map[string]engine.Property, error)
}

// Repo implements usecase/search.Repository.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Execute runs a compiled query body against collection.
func (r *Repo) Execute(ctx context.Context, collection string, body map[string]any) (*engine.SearchResponse, error) {
	res, err := r.store.Search(ctx, collection, body)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, errmap.FromEngine(err))
	}
	return res, nil
}

// Fields introspects the live mapping of collection.
// Object properties are flattened to dotted paths; nested and vector fields
// are left out since plain terms aggregations cannot address them.
func (r *Repo) Fields(ctx context.Context, collection string) (field.Catalog, error) {
	props, err := r.store.GetMapping(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("get mapping %s: %w", collection, errmap.FromEngine(err))
	}
	catalog := make(field.Catalog, len(props))
	flatten(catalog, "", props)
	return catalog, nil
}

func flatten(catalog field.Catalog, prefix string, props map[string]engine.Property) {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := props[name]
		path := prefix + name
		switch {
		case p.Type == engine.TypeNested || p.Type == engine.TypeDenseVector:
			continue
		case len(p.Properties) > 0:
			flatten(catalog, path+".", p.Properties)
		case p.Type != "":
			catalog[path] = field.New(path, field.Type(p.Type), p.HasSubfield(engine.KeywordSubfield))
		}
	}
}
