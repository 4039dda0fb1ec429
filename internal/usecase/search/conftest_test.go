package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/docsearch/internal/domain/collection/field"
	"github.com/kailas-cloud/docsearch/internal/domain/search/request"
	"github.com/kailas-cloud/docsearch/internal/engine"
)

// mockRepo implements Repository for tests and records every executed body.
type mockRepo struct {
	executeFn func(ctx context.Context, collection string, body map[string]any) (*engine.SearchResponse, error)
	fieldsFn  func(ctx context.Context, collection string) (field.Catalog, error)
	bodies    []map[string]any
	fieldsHit int
}

func (m *mockRepo) Execute(ctx context.Context, collection string, body map[string]any) (*engine.SearchResponse, error) {
	m.bodies = append(m.bodies, body)
	if m.executeFn != nil {
		return m.executeFn(ctx, collection, body)
	}
	return &engine.SearchResponse{}, nil
}

func (m *mockRepo) Fields(ctx context.Context, collection string) (field.Catalog, error) {
	m.fieldsHit++
	if m.fieldsFn != nil {
		return m.fieldsFn(ctx, collection)
	}
	return field.Catalog{}, nil
}

func newRequest(t *testing.T, p request.Params) *request.Request {
	t.Helper()
	r, err := request.New(p, request.DefaultLimits())
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &r
}

func fielddataError() error {
	return &engine.Error{
		Op:     engine.OpSearch,
		Status: 400,
		Type:   "search_phase_execution_exception",
		Reason: "all shards failed",
		RootCauses: []string{
			"illegal_argument_exception: Fielddata is disabled on [title] in [articles]. Text fields are not optimised for operations that require per-document field data",
		},
		Err: engine.ErrBadRequest,
	}
}

func score(v float64) *float64 { return &v }

// testCatalog mirrors a typical article mapping.
func testCatalog() field.Catalog {
	return field.Catalog{
		"title":       field.New("title", field.Text, true),
		"description": field.New("description", field.Text, false),
		"status":      field.New("status", field.Keyword, false),
		"tags":        field.New("tags", field.Keyword, false),
	}
}
