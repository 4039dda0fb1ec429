package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/docsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/docsearch/internal/domain/search/sortspec"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed free-text query length.
	MaxQueryLength = 4096
	// MaxFacetLimit caps buckets per facet.
	MaxFacetLimit = 1000
	// MaxResultWindow is the engine's default from+size ceiling.
	MaxResultWindow = 10000
	// MaxListFields caps fl, fields and highlight_fields entries.
	MaxListFields = 64
)

// Limits are the configurable defaults applied to a request.
type Limits struct {
	DefaultLimit      int
	MaxLimit          int
	DefaultFacetLimit int
	HighlightPreTag   string
	HighlightPostTag  string
}

// DefaultLimits returns limit 10 (max 100), facet limit 10 and <em> highlight tags.
func DefaultLimits() Limits {
	return Limits{
		DefaultLimit:      10,
		MaxLimit:          100,
		DefaultFacetLimit: 10,
		HighlightPreTag:   "<em>",
		HighlightPostTag:  "</em>",
	}
}

// Params is the raw declarative search request.
type Params struct {
	Query            string
	Filters          []string
	Fields           []string // fl, entries "original" or "original:alias"
	Sort             string
	FacetFields      []string
	Limit            int
	Offset           int
	FacetLimit       int
	Highlight        bool
	HighlightFields  []string
	HighlightPreTag  string
	HighlightPostTag string
}

// Projection is one fl entry.
type Projection struct {
	Original string
	Alias    string
}

// Highlight describes requested highlighting.
type Highlight struct {
	Enabled bool
	Fields  []string
	PreTag  string
	PostTag string
}

// Request is a validated search request.
type Request struct {
	query       string
	filters     filter.Expressions
	projection  []Projection
	sort        []sortspec.Directive
	facetFields []string
	limit       int
	offset      int
	facetLimit  int
	highlight   Highlight
}

// New validates p and applies defaults from l.
// Zero limit/facet_limit mean "use the default"; negatives are rejected.
func New(p Params, l Limits) (Request, error) {
	if len(p.Query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}

	limit := p.Limit
	if limit == 0 {
		limit = l.DefaultLimit
	}
	if limit < 1 || limit > l.MaxLimit {
		return Request{}, fmt.Errorf("limit must be between 1 and %d", l.MaxLimit)
	}
	if p.Offset < 0 {
		return Request{}, fmt.Errorf("offset must not be negative")
	}
	if p.Offset+limit > MaxResultWindow {
		return Request{}, fmt.Errorf("offset + limit must not exceed %d", MaxResultWindow)
	}

	facetLimit := p.FacetLimit
	if facetLimit == 0 {
		facetLimit = l.DefaultFacetLimit
	}
	if facetLimit < 1 || facetLimit > MaxFacetLimit {
		return Request{}, fmt.Errorf("facet_limit must be between 1 and %d", MaxFacetLimit)
	}

	filters, err := filter.New(p.Filters)
	if err != nil {
		return Request{}, err
	}

	projection, err := ParseProjection(p.Fields)
	if err != nil {
		return Request{}, err
	}

	facetFields, err := cleanList("fields", p.FacetFields)
	if err != nil {
		return Request{}, err
	}
	hlFields, err := cleanList("highlight_fields", p.HighlightFields)
	if err != nil {
		return Request{}, err
	}

	hl := Highlight{Enabled: p.Highlight, PreTag: p.HighlightPreTag, PostTag: p.HighlightPostTag}
	if hl.PreTag == "" {
		hl.PreTag = l.HighlightPreTag
	}
	if hl.PostTag == "" {
		hl.PostTag = l.HighlightPostTag
	}
	if hl.Enabled {
		hl.Fields = highlightFields(hlFields, projection)
	}

	return Request{
		query:       strings.TrimSpace(p.Query),
		filters:     filters,
		projection:  projection,
		sort:        sortspec.Parse(p.Sort),
		facetFields: facetFields,
		limit:       limit,
		offset:      p.Offset,
		facetLimit:  facetLimit,
		highlight:   hl,
	}, nil
}

// ParseProjection splits each fl entry on its first ':' into original and alias.
// An entry without alias maps to itself.
func ParseProjection(fl []string) ([]Projection, error) {
	if len(fl) > MaxListFields {
		return nil, fmt.Errorf("too many fl entries (max %d)", MaxListFields)
	}
	out := make([]Projection, 0, len(fl))
	for _, raw := range fl {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		original, alias, hasAlias := strings.Cut(entry, ":")
		original, alias = strings.TrimSpace(original), strings.TrimSpace(alias)
		if original == "" {
			return nil, fmt.Errorf("fl entry %q has no field name", raw)
		}
		if !hasAlias {
			alias = original
		} else if alias == "" {
			return nil, fmt.Errorf("fl entry %q has an empty alias", raw)
		}
		out = append(out, Projection{Original: original, Alias: alias})
	}
	return out, nil
}

// highlightFields picks explicit fields, else fl originals, else "*".
func highlightFields(explicit []string, projection []Projection) []string {
	if len(explicit) > 0 {
		return explicit
	}
	if len(projection) > 0 {
		out := make([]string, len(projection))
		for i, p := range projection {
			out[i] = p.Original
		}
		return out
	}
	return []string{"*"}
}

func cleanList(name string, in []string) ([]string, error) {
	if len(in) > MaxListFields {
		return nil, fmt.Errorf("too many %s entries (max %d)", name, MaxListFields)
	}
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// Query returns the free-text query, empty for match-all.
func (r *Request) Query() string { return r.query }

// Filters returns the filter expressions.
func (r *Request) Filters() filter.Expressions { return r.filters }

// Projection returns the fl entries, empty when full documents are requested.
func (r *Request) Projection() []Projection { return r.projection }

// HasProjection reports whether fl was given.
func (r *Request) HasProjection() bool { return len(r.projection) > 0 }

// Sort returns the parsed sort directives.
func (r *Request) Sort() []sortspec.Directive { return r.sort }

// FacetFields returns the explicit facet field list.
func (r *Request) FacetFields() []string { return r.facetFields }

// Limit returns the page size.
func (r *Request) Limit() int { return r.limit }

// Offset returns the number of hits to skip.
func (r *Request) Offset() int { return r.offset }

// FacetLimit returns the bucket count per facet.
func (r *Request) FacetLimit() int { return r.facetLimit }

// Highlight returns the highlight settings.
func (r *Request) Highlight() Highlight { return r.highlight }
