package docsearch

import "time"

// Document is a stored JSON document keyed by its urn (or id).
type Document map[string]any

// SearchRequest is the declarative search request.
type SearchRequest struct {
	// Query is the free text q. Empty matches every document.
	Query string
	// Filters are fq expressions such as "tags:vegan".
	Filters []string
	// Fields is the fl projection; "original:alias" renames a field.
	Fields []string
	// Sort is "field [asc|desc], ..." or "score desc".
	Sort string
	// FacetFields lists the fields to aggregate. Empty infers them from the
	// filters and the index mapping.
	FacetFields      []string
	Limit            int
	Offset           int
	FacetLimit       int
	Highlight        bool
	HighlightFields  []string
	HighlightPreTag  string
	HighlightPostTag string
}

// FacetValue is one facet bucket.
type FacetValue struct {
	Value any
	Count int64
}

// SearchResult is a page of projected hits with facet counts. Each hit
// carries "_score" and, when highlighting, "_highlight".
type SearchResult struct {
	Hits   []Document
	Facets map[string][]FacetValue
	Total  int64
}

// RebuildRequest migrates Collection to a freshly created NewIndex.
type RebuildRequest struct {
	Collection string
	NewIndex   string
	DeleteOld  bool
}

// RebuildResult reports a finished migration.
type RebuildResult struct {
	Collection     string
	OldIndex       string
	NewIndex       string
	PromotedLegacy bool
	Copied         int64
	DeletedOld     bool
	Took           time.Duration
}

// BulkItem is the outcome of one item of a bulk call, in input order.
// Err is nil on success.
type BulkItem struct {
	Key string
	Err error
}
