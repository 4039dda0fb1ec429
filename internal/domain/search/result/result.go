package result

import "github.com/kailas-cloud/docsearch/internal/domain/document"

// Reserved keys attached to projected hits.
const (
	ScoreKey     = "_score"
	HighlightKey = "_highlight"
)

// FacetValue is one bucket of a facet.
type FacetValue struct {
	Value any   `json:"value"`
	Count int64 `json:"count"`
}

// Facets maps a field name to its buckets, ordered by count descending.
type Facets map[string][]FacetValue

// Result is the reshaped search response.
type Result struct {
	hits   []document.Document
	facets Facets
	total  int64
}

// New creates a search result.
func New(hits []document.Document, facets Facets, total int64) Result {
	if hits == nil {
		hits = []document.Document{}
	}
	if facets == nil {
		facets = Facets{}
	}
	return Result{hits: hits, facets: facets, total: total}
}

// Hits returns the projected documents, each carrying _score and optionally _highlight.
func (r *Result) Hits() []document.Document { return r.hits }

// Facets returns facet buckets by field.
func (r *Result) Facets() Facets { return r.facets }

// Total returns the total match count.
func (r *Result) Total() int64 { return r.total }
