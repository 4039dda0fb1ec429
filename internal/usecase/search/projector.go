package search

import (
	"strings"

	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
	"github.com/kailas-cloud/docsearch/internal/engine"
)

// project reshapes an engine response: projected and aliased sources with
// _score and optional _highlight, facets keyed by field name, and the total.
func project(res *engine.SearchResponse, c compiled) result.Result {
	hits := make([]domdoc.Document, 0, len(res.Hits.Hits))
	for _, h := range res.Hits.Hits {
		hits = append(hits, projectHit(h, c))
	}

	facets := make(result.Facets, len(res.Aggregations))
	for name, agg := range res.Aggregations {
		values := make([]result.FacetValue, 0, len(agg.Buckets))
		for _, b := range agg.Buckets {
			values = append(values, result.FacetValue{Value: b.Key, Count: b.DocCount})
		}
		facets[strings.TrimSuffix(name, facetSuffix)] = values
	}

	return result.New(hits, facets, res.Hits.Total.Value)
}

func projectHit(h engine.Hit, c compiled) domdoc.Document {
	var out domdoc.Document
	if len(c.projection) > 0 {
		out = make(domdoc.Document, len(c.projection)+2)
		for _, p := range c.projection {
			if v, ok := h.Source[p.Original]; ok {
				out[p.Alias] = v
			}
		}
	} else {
		out = make(domdoc.Document, len(h.Source)+2)
		for k, v := range h.Source {
			out[k] = v
		}
	}

	if h.Score != nil {
		out[result.ScoreKey] = *h.Score
	} else {
		out[result.ScoreKey] = nil
	}
	if c.highlight && len(h.Highlight) > 0 {
		out[result.HighlightKey] = h.Highlight
	}
	return out
}
