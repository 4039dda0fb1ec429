package search

import (
	"reflect"
	"testing"

	"github.com/kailas-cloud/docsearch/internal/domain/search/request"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
	"github.com/kailas-cloud/docsearch/internal/engine"
)

func response(hits ...engine.Hit) *engine.SearchResponse {
	res := &engine.SearchResponse{}
	res.Hits.Hits = hits
	res.Hits.Total.Value = int64(len(hits))
	return res
}

func firstHit(t *testing.T, res *engine.SearchResponse, c compiled) map[string]any {
	t.Helper()
	out := project(res, c)
	hits := out.Hits()
	if len(hits) == 0 {
		t.Fatal("no hits projected")
	}
	return hits[0]
}

func TestProject_AliasesProjection(t *testing.T) {
	c := compile(newRequest(t, request.Params{Fields: []string{"title:name", "region", "missing"}}), nil)
	res := response(engine.Hit{
		ID:     "1",
		Score:  score(1.5),
		Source: map[string]any{"title": "X", "region": "CH", "description": "Y"},
	})

	out := project(res, c)
	hits := out.Hits()
	if len(hits) != 1 {
		t.Fatalf("hits = %v", hits)
	}
	want := map[string]any{"name": "X", "region": "CH", "_score": 1.5}
	if !reflect.DeepEqual(map[string]any(hits[0]), want) {
		t.Errorf("hit = %v, want %v", hits[0], want)
	}
}

func TestProject_FullSourceAndNullScore(t *testing.T) {
	c := compile(newRequest(t, request.Params{Sort: "created_at"}), nil)
	res := response(engine.Hit{ID: "1", Source: map[string]any{"title": "X", "description": "Y"}})

	hit := firstHit(t, res, c)
	if hit["description"] != "Y" || hit["title"] != "X" {
		t.Errorf("hit = %v", hit)
	}
	v, ok := hit[result.ScoreKey]
	if !ok || v != nil {
		t.Errorf("_score = %v (present %v), want explicit null", v, ok)
	}
}

func TestProject_Highlight(t *testing.T) {
	hl := map[string][]string{"title": {"<em>vitamin</em> d"}}

	on := compile(newRequest(t, request.Params{Highlight: true}), nil)
	hit := firstHit(t, response(engine.Hit{Source: map[string]any{}, Highlight: hl}), on)
	if !reflect.DeepEqual(hit[result.HighlightKey], hl) {
		t.Errorf("_highlight = %v", hit[result.HighlightKey])
	}

	noFragments := firstHit(t, response(engine.Hit{Source: map[string]any{}}), on)
	if _, ok := noFragments[result.HighlightKey]; ok {
		t.Error("_highlight should be absent without fragments")
	}

	off := compile(newRequest(t, request.Params{}), nil)
	hit = firstHit(t, response(engine.Hit{Source: map[string]any{}, Highlight: hl}), off)
	if _, ok := hit[result.HighlightKey]; ok {
		t.Error("_highlight should be absent when not requested")
	}
}

func TestProject_Facets(t *testing.T) {
	res := response()
	res.Hits.Total.Value = 42
	res.Aggregations = map[string]engine.Aggregation{
		"region_facet": {Buckets: []engine.Bucket{{Key: "CH", DocCount: 30}, {Key: "DE", DocCount: 12}}},
		"tags_facet":   {Buckets: []engine.Bucket{}},
	}

	out := project(res, compile(newRequest(t, request.Params{}), nil))
	if out.Total() != 42 {
		t.Errorf("total = %d", out.Total())
	}
	want := []result.FacetValue{{Value: "CH", Count: 30}, {Value: "DE", Count: 12}}
	if !reflect.DeepEqual(out.Facets()["region"], want) {
		t.Errorf("region = %v", out.Facets()["region"])
	}
	if tags, ok := out.Facets()["tags"]; !ok || len(tags) != 0 {
		t.Errorf("tags = %v (present %v)", tags, ok)
	}
}

func TestProject_EmptyResponse(t *testing.T) {
	out := project(&engine.SearchResponse{}, compile(newRequest(t, request.Params{}), nil))
	if out.Hits() == nil || len(out.Hits()) != 0 || out.Facets() == nil {
		t.Errorf("empty result = %+v", out)
	}
}
