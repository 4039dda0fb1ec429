package document

import (
	"context"
	"testing"

	"github.com/kailas-cloud/docsearch/internal/engine"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	getFn           func(ctx context.Context, index, id string) (map[string]any, error)
	indexFn         func(ctx context.Context, index, id string, doc map[string]any, refresh engine.Refresh) error
	updateFn        func(ctx context.Context, index, id string, upd engine.DocumentUpdate, refresh engine.Refresh) error
	deleteFn        func(ctx context.Context, index, id string, refresh engine.Refresh) error
	deleteByQueryFn func(ctx context.Context, index string, query map[string]any) (int64, error)
	bulkFn          func(ctx context.Context, index string, docs []engine.BulkDocument, refresh engine.Refresh) (*engine.BulkResult, error)
	searchFn        func(ctx context.Context, index string, body map[string]any) (*engine.SearchResponse, error)
}

func (m *mockStore) GetDocument(ctx context.Context, index, id string) (map[string]any, error) {
	if m.getFn != nil {
		return m.getFn(ctx, index, id)
	}
	return nil, engine.ErrDocumentNotFound
}

func (m *mockStore) IndexDocument(
	ctx context.Context, index, id string, doc map[string]any, refresh engine.Refresh,
) error {
	if m.indexFn != nil {
		return m.indexFn(ctx, index, id, doc, refresh)
	}
	return nil
}

func (m *mockStore) UpdateDocument(
	ctx context.Context, index, id string, upd engine.DocumentUpdate, refresh engine.Refresh,
) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, index, id, upd, refresh)
	}
	return nil
}

func (m *mockStore) DeleteDocument(ctx context.Context, index, id string, refresh engine.Refresh) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, index, id, refresh)
	}
	return nil
}

func (m *mockStore) DeleteByQuery(ctx context.Context, index string, query map[string]any) (int64, error) {
	if m.deleteByQueryFn != nil {
		return m.deleteByQueryFn(ctx, index, query)
	}
	return 0, nil
}

func (m *mockStore) BulkIndex(
	ctx context.Context, index string, docs []engine.BulkDocument, refresh engine.Refresh,
) (*engine.BulkResult, error) {
	if m.bulkFn != nil {
		return m.bulkFn(ctx, index, docs, refresh)
	}
	return &engine.BulkResult{Indexed: len(docs)}, nil
}

func (m *mockStore) Search(ctx context.Context, index string, body map[string]any) (*engine.SearchResponse, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, index, body)
	}
	return &engine.SearchResponse{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}
