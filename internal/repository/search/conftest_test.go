package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/docsearch/internal/engine"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchFn     func(ctx context.Context, index string, body map[string]any) (*engine.SearchResponse, error)
	getMappingFn func(ctx context.Context, index string) (map[string]engine.Property, error)
}

func (m *mockStore) Search(ctx context.Context, index string, body map[string]any) (*engine.SearchResponse, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, index, body)
	}
	return &engine.SearchResponse{}, nil
}

func (m *mockStore) GetMapping(ctx context.Context, index string) (map[string]engine.Property, error) {
	if m.getMappingFn != nil {
		return m.getMappingFn(ctx, index)
	}
	return map[string]engine.Property{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}
