package search

import (
	"strings"

	"github.com/kailas-cloud/docsearch/internal/domain/collection/field"
	"github.com/kailas-cloud/docsearch/internal/domain/search/request"
)

// longFormFields hold free text, vectors or audit payloads. A default facet
// is dropped when any segment of its path is listed here.
var longFormFields = map[string]bool{
	"description":          true,
	"content":              true,
	"instructions":         true,
	"bio":                  true,
	"snippet":              true,
	"embedding":            true,
	"embeddings":           true,
	"embedding_updated_at": true,
	"embedding_created_at": true,
	"enhancements":         true,
	"before":               true,
	"after":                true,
}

// lowValueFields identify, timestamp or display a document; they make poor facets.
var lowValueFields = map[string]bool{
	"id":                  true,
	"urn":                 true,
	"external_id":         true,
	"url":                 true,
	"created_at":          true,
	"updated_at":          true,
	"embedded_at":         true,
	"title":               true,
	"status":              true,
	"license":             true,
	"ai_generated_fields": true,
}

// catalogLoader fetches the collection mapping; only called for default facets.
type catalogLoader func() (field.Catalog, error)

// resolveFacets picks aggregation fields: explicit fields, else the fields
// named by field:value filters, else every facetable mapped field that is
// neither long-form nor low-value. Explicit and inferred fields are untyped.
func resolveFacets(req *request.Request, load catalogLoader) ([]field.Field, error) {
	if explicit := req.FacetFields(); len(explicit) > 0 {
		return untyped(explicit), nil
	}
	if inferred := req.Filters().Fields(); len(inferred) > 0 {
		return untyped(inferred), nil
	}

	catalog, err := load()
	if err != nil {
		return nil, err
	}
	var out []field.Field
	for _, name := range catalog.Names() {
		f := catalog[name]
		if !f.Facetable() || excludedByDefault(name) {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func untyped(names []string) []field.Field {
	seen := make(map[string]bool, len(names))
	out := make([]field.Field, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, field.Untyped(n))
	}
	return out
}

func excludedByDefault(name string) bool {
	if lowValueFields[name] {
		return true
	}
	for _, seg := range strings.Split(name, ".") {
		if longFormFields[seg] {
			return true
		}
	}
	return false
}
