package docsearch

import (
	"context"

	dombatch "github.com/kailas-cloud/docsearch/internal/domain/batch"
	domcol "github.com/kailas-cloud/docsearch/internal/domain/collection"
	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/search/request"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
	"github.com/kailas-cloud/docsearch/internal/usecase/lifecycle"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	params   request.Params
	searchFn func(ctx context.Context, col string, req *request.Request) (result.Result, error)
}

func (m *mockSearchUC) Request(p request.Params) (*request.Request, error) {
	m.params = p
	req, err := request.New(p, request.DefaultLimits())
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (m *mockSearchUC) Search(ctx context.Context, col string, req *request.Request) (result.Result, error) {
	return m.searchFn(ctx, col, req)
}

// --- lifecycleUseCase mock ---

type mockLifecycleUC struct {
	bootstrapFn func(ctx context.Context) ([]string, error)
	resolveFn   func(ctx context.Context, alias string) (domcol.Target, error)
	rebuildFn   func(ctx context.Context, req lifecycle.RebuildRequest) (lifecycle.RebuildResult, error)
}

func (m *mockLifecycleUC) Bootstrap(ctx context.Context) ([]string, error) {
	return m.bootstrapFn(ctx)
}

func (m *mockLifecycleUC) Resolve(ctx context.Context, alias string) (domcol.Target, error) {
	return m.resolveFn(ctx, alias)
}

func (m *mockLifecycleUC) Rebuild(ctx context.Context, req lifecycle.RebuildRequest) (lifecycle.RebuildResult, error) {
	return m.rebuildFn(ctx, req)
}

// --- documentUseCase mock ---

type mockDocumentUC struct {
	getFn     func(ctx context.Context, col, key string) (domdoc.Document, error)
	indexFn   func(ctx context.Context, col string, doc domdoc.Document) (string, error)
	updateFn  func(ctx context.Context, col, key string, partial domdoc.Document) (bool, error)
	enhanceFn func(ctx context.Context, col, key string, fields, event map[string]any) error
	deleteFn  func(ctx context.Context, col, key string) error
	dbqFn     func(ctx context.Context, col string, query map[string]any) (int64, error)
	listFn    func(ctx context.Context, col string, limit, offset int) ([]string, error)
	fetchFn   func(ctx context.Context, col string, limit, offset int) ([]domdoc.Document, error)
}

func (m *mockDocumentUC) Get(ctx context.Context, col, key string) (domdoc.Document, error) {
	return m.getFn(ctx, col, key)
}

func (m *mockDocumentUC) Index(ctx context.Context, col string, doc domdoc.Document) (string, error) {
	return m.indexFn(ctx, col, doc)
}

func (m *mockDocumentUC) Update(ctx context.Context, col, key string, partial domdoc.Document) (bool, error) {
	return m.updateFn(ctx, col, key, partial)
}

func (m *mockDocumentUC) Enhance(ctx context.Context, col, key string, fields, event map[string]any) error {
	return m.enhanceFn(ctx, col, key, fields, event)
}

func (m *mockDocumentUC) Delete(ctx context.Context, col, key string) error {
	return m.deleteFn(ctx, col, key)
}

func (m *mockDocumentUC) DeleteByQuery(ctx context.Context, col string, query map[string]any) (int64, error) {
	return m.dbqFn(ctx, col, query)
}

func (m *mockDocumentUC) List(ctx context.Context, col string, limit, offset int) ([]string, error) {
	return m.listFn(ctx, col, limit, offset)
}

func (m *mockDocumentUC) Fetch(ctx context.Context, col string, limit, offset int) ([]domdoc.Document, error) {
	return m.fetchFn(ctx, col, limit, offset)
}

// --- bulkUseCase mock ---

type mockBulkUC struct {
	upsertFn func(ctx context.Context, col string, docs []domdoc.Document) []dombatch.Result
	deleteFn func(ctx context.Context, col string, keys []string) []dombatch.Result
}

func (m *mockBulkUC) Upsert(ctx context.Context, col string, docs []domdoc.Document) []dombatch.Result {
	return m.upsertFn(ctx, col, docs)
}

func (m *mockBulkUC) Delete(ctx context.Context, col string, keys []string) []dombatch.Result {
	return m.deleteFn(ctx, col, keys)
}
