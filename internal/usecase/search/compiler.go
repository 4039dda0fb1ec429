package search

import (
	"github.com/kailas-cloud/docsearch/internal/domain/collection/field"
	"github.com/kailas-cloud/docsearch/internal/domain/search/request"
	"github.com/kailas-cloud/docsearch/internal/domain/search/sortspec"
)

// facetSuffix marks aggregation names so they can be mapped back to fields.
const facetSuffix = "_facet"

// compiled is a native query body plus what the projector needs to reshape hits.
type compiled struct {
	body       map[string]any
	sort       []sortspec.Directive
	projection []request.Projection
	highlight  bool
}

// compile builds the engine query body for req with the resolved facets.
func compile(req *request.Request, facets []field.Field) compiled {
	must := []any{}
	if q := req.Query(); q != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"*"},
			},
		})
	}

	body := map[string]any{
		"from": req.Offset(),
		"size": req.Limit(),
		"query": map[string]any{
			"bool": map[string]any{
				"must":   must,
				"filter": req.Filters().Clauses(),
			},
		},
	}

	if len(facets) > 0 {
		aggs := make(map[string]any, len(facets))
		for _, f := range facets {
			aggs[f.Name()+facetSuffix] = map[string]any{
				"terms": map[string]any{
					"field":         f.AggregationTarget(),
					"size":          req.FacetLimit(),
					"order":         map[string]any{"_count": "desc"},
					"min_doc_count": 1,
				},
			}
		}
		body["aggs"] = aggs
	}

	if req.HasProjection() {
		source := make([]string, 0, len(req.Projection()))
		for _, p := range req.Projection() {
			source = append(source, p.Original)
		}
		body["_source"] = source
	}

	if len(req.Sort()) > 0 {
		body["sort"] = sortspec.Clauses(req.Sort())
	}

	hl := req.Highlight()
	if hl.Enabled {
		fields := make(map[string]any, len(hl.Fields))
		for _, f := range hl.Fields {
			fields[f] = map[string]any{}
		}
		body["highlight"] = map[string]any{
			"pre_tags":  []string{hl.PreTag},
			"post_tags": []string{hl.PostTag},
			"fields":    fields,
		}
	}

	return compiled{
		body:       body,
		sort:       req.Sort(),
		projection: req.Projection(),
		highlight:  hl.Enabled,
	}
}

// withKeywordSort returns a copy of c whose sort targets keyword subfields,
// and whether anything changed.
func (c compiled) withKeywordSort() (compiled, bool) {
	if len(c.sort) == 0 {
		return c, false
	}
	fixed := sortspec.KeywordFallback(c.sort)
	changed := false
	for i := range fixed {
		if fixed[i] != c.sort[i] {
			changed = true
			break
		}
	}
	if !changed {
		return c, false
	}

	body := make(map[string]any, len(c.body))
	for k, v := range c.body {
		body[k] = v
	}
	body["sort"] = sortspec.Clauses(fixed)
	c.body = body
	c.sort = fixed
	return c, true
}
