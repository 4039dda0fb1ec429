package collection

import (
	"context"
	"testing"

	"github.com/kailas-cloud/docsearch/internal/engine"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	createIndexFn   func(ctx context.Context, name string, def *engine.IndexDefinition) error
	deleteIndexFn   func(ctx context.Context, name string) error
	indexExistsFn   func(ctx context.Context, name string) (bool, error)
	aliasExistsFn   func(ctx context.Context, alias string) (bool, error)
	aliasTargetsFn  func(ctx context.Context, alias string) ([]string, error)
	updateAliasesFn func(ctx context.Context, actions []engine.AliasAction) error
	reindexFn       func(ctx context.Context, req engine.ReindexRequest) (*engine.ReindexResult, error)
}

func (m *mockStore) CreateIndex(ctx context.Context, name string, def *engine.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, name, def)
	}
	return nil
}

func (m *mockStore) DeleteIndex(ctx context.Context, name string) error {
	if m.deleteIndexFn != nil {
		return m.deleteIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) AliasExists(ctx context.Context, alias string) (bool, error) {
	if m.aliasExistsFn != nil {
		return m.aliasExistsFn(ctx, alias)
	}
	return false, nil
}

func (m *mockStore) AliasTargets(ctx context.Context, alias string) ([]string, error) {
	if m.aliasTargetsFn != nil {
		return m.aliasTargetsFn(ctx, alias)
	}
	return nil, nil
}

func (m *mockStore) UpdateAliases(ctx context.Context, actions []engine.AliasAction) error {
	if m.updateAliasesFn != nil {
		return m.updateAliasesFn(ctx, actions)
	}
	return nil
}

func (m *mockStore) Reindex(ctx context.Context, req engine.ReindexRequest) (*engine.ReindexResult, error) {
	if m.reindexFn != nil {
		return m.reindexFn(ctx, req)
	}
	return &engine.ReindexResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}
