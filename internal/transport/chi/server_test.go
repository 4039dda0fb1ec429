package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/domain"
	dombatch "github.com/kailas-cloud/docsearch/internal/domain/batch"
	domcol "github.com/kailas-cloud/docsearch/internal/domain/collection"
	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/job"
	"github.com/kailas-cloud/docsearch/internal/domain/search/request"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
	"github.com/kailas-cloud/docsearch/internal/engine"
	healthuc "github.com/kailas-cloud/docsearch/internal/usecase/health"
	"github.com/kailas-cloud/docsearch/internal/usecase/lifecycle"
)

// --- Mocks ---

type mockDocuments struct {
	getFn    func(collection, key string) (domdoc.Document, error)
	indexFn  func(collection string, doc domdoc.Document) (string, error)
	updateFn func(collection, key string, partial domdoc.Document) (bool, error)
	enhance  func(collection, key string, fields, event map[string]any) error
	deleteFn func(collection, key string) error
	dbqFn    func(collection string, query map[string]any) (int64, error)
	listFn   func(collection string, limit, offset int) ([]string, error)
	fetchFn  func(collection string, limit, offset int) ([]domdoc.Document, error)
}

func (m *mockDocuments) Get(_ context.Context, collection, key string) (domdoc.Document, error) {
	return m.getFn(collection, key)
}

func (m *mockDocuments) Index(_ context.Context, collection string, doc domdoc.Document) (string, error) {
	return m.indexFn(collection, doc)
}

func (m *mockDocuments) Update(_ context.Context, collection, key string, partial domdoc.Document) (bool, error) {
	return m.updateFn(collection, key, partial)
}

func (m *mockDocuments) Enhance(_ context.Context, collection, key string, fields, event map[string]any) error {
	return m.enhance(collection, key, fields, event)
}

func (m *mockDocuments) Delete(_ context.Context, collection, key string) error {
	return m.deleteFn(collection, key)
}

func (m *mockDocuments) DeleteByQuery(_ context.Context, collection string, query map[string]any) (int64, error) {
	return m.dbqFn(collection, query)
}

func (m *mockDocuments) List(_ context.Context, collection string, limit, offset int) ([]string, error) {
	return m.listFn(collection, limit, offset)
}

func (m *mockDocuments) Fetch(_ context.Context, collection string, limit, offset int) ([]domdoc.Document, error) {
	return m.fetchFn(collection, limit, offset)
}

type mockBulk struct {
	upsertFn func(collection string, docs []domdoc.Document) []dombatch.Result
	deleteFn func(collection string, keys []string) []dombatch.Result
}

func (m *mockBulk) Upsert(_ context.Context, collection string, docs []domdoc.Document) []dombatch.Result {
	return m.upsertFn(collection, docs)
}

func (m *mockBulk) Delete(_ context.Context, collection string, keys []string) []dombatch.Result {
	return m.deleteFn(collection, keys)
}

type mockSearcher struct {
	params   request.Params
	searchFn func(collection string, req *request.Request) (result.Result, error)
}

func (m *mockSearcher) Request(p request.Params) (*request.Request, error) {
	m.params = p
	req, err := request.New(p, request.DefaultLimits())
	if err != nil {
		return nil, domain.NewQueryError(err.Error())
	}
	return &req, nil
}

func (m *mockSearcher) Search(_ context.Context, collection string, req *request.Request) (result.Result, error) {
	if m.searchFn != nil {
		return m.searchFn(collection, req)
	}
	return result.New(nil, nil, 0), nil
}

type mockLifecycle struct {
	resolveFn func(alias string) (domcol.Target, error)
	rebuildFn func(ctx context.Context, req lifecycle.RebuildRequest) (lifecycle.RebuildResult, error)
}

func (m *mockLifecycle) Resolve(_ context.Context, alias string) (domcol.Target, error) {
	return m.resolveFn(alias)
}

func (m *mockLifecycle) Rebuild(ctx context.Context, req lifecycle.RebuildRequest) (lifecycle.RebuildResult, error) {
	return m.rebuildFn(ctx, req)
}

type mockJobs struct {
	statusFn func(id string) (job.Status, error)
}

func (m *mockJobs) Status(_ context.Context, id string) (job.Status, error) {
	return m.statusFn(id)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type testDeps struct {
	docs   *mockDocuments
	bulk   *mockBulk
	search *mockSearcher
	lc     *mockLifecycle
	jobs   Jobs
	health *mockHealth
	keys   []string
}

func newTestDeps() *testDeps {
	return &testDeps{
		docs:   &mockDocuments{},
		bulk:   &mockBulk{},
		search: &mockSearcher{},
		lc:     &mockLifecycle{},
		jobs:   &mockJobs{},
		health: &mockHealth{report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}}},
	}
}

func (d *testDeps) handler() http.Handler {
	s := NewServer(d.docs, d.bulk, d.search, d.lc, d.jobs, d.health, zap.NewNop())
	return NewRouter(s, d.keys, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (status %d)", err, rr.Code)
	}
	return v
}

// --- Search ---

func TestSearchDocumentsQuery_BindsParameters(t *testing.T) {
	d := newTestDeps()
	var gotCollection string
	d.search.searchFn = func(collection string, _ *request.Request) (result.Result, error) {
		gotCollection = collection
		hits := []domdoc.Document{{"name": "X", "_score": 1.5}}
		facets := result.Facets{"region": {{Value: "CH", Count: 3}}}
		return result.New(hits, facets, 42), nil
	}

	target := "/api/v1/collections/articles/search?q=vitamin&fq=category:health&fq=region:CH" +
		"&fl=title:name&sort=title+desc&limit=5&offset=10&facet_limit=3&highlight=true&highlight_fields=title"
	rr := do(t, d.handler(), http.MethodGet, target, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	want := request.Params{
		Query:           "vitamin",
		Filters:         []string{"category:health", "region:CH"},
		Fields:          []string{"title:name"},
		Sort:            "title desc",
		Limit:           5,
		Offset:          10,
		FacetLimit:      3,
		Highlight:       true,
		HighlightFields: []string{"title"},
	}
	if !reflect.DeepEqual(d.search.params, want) {
		t.Errorf("params = %+v\nwant %+v", d.search.params, want)
	}
	if gotCollection != "articles" {
		t.Errorf("collection = %q", gotCollection)
	}

	resp := decode[SearchResponse](t, rr)
	if resp.Total != 42 || len(resp.Results) != 1 || resp.Results[0]["name"] != "X" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if got := resp.Facets["region"]; len(got) != 1 || got[0].Value != "CH" || got[0].Count != 3 {
		t.Errorf("facets = %+v", resp.Facets)
	}
}

func TestSearchDocumentsQuery_InvalidParamFormat(t *testing.T) {
	rr := do(t, newTestDeps().handler(), http.MethodGet, "/api/v1/collections/articles/search?limit=ten", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr); resp.Code != ErrorCodeInvalidParamFormat {
		t.Errorf("code = %s", resp.Code)
	}
}

func TestSearchDocuments_Body(t *testing.T) {
	d := newTestDeps()
	body := `{"q":"soup","fq":["status:published"],"fields":["tags"],"limit":20,"highlight_pre_tag":"<b>"}`

	rr := do(t, d.handler(), http.MethodPost, "/api/v1/collections/recipes/search", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	p := d.search.params
	if p.Query != "soup" || p.Limit != 20 || p.HighlightPreTag != "<b>" ||
		!reflect.DeepEqual(p.FacetFields, []string{"tags"}) {
		t.Errorf("params = %+v", p)
	}

	resp := decode[SearchResponse](t, rr)
	if resp.Results == nil || resp.Facets == nil {
		t.Error("empty results and facets must encode as [] and {}")
	}
}

func TestSearchDocuments_InvalidRequest(t *testing.T) {
	rr := do(t, newTestDeps().handler(), http.MethodPost, "/api/v1/collections/recipes/search", `{"limit":100000}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decode[ErrorResponse](t, rr)
	if resp.Code != ErrorCodeBadRequest || !strings.HasPrefix(resp.Message, "invalid request: ") {
		t.Errorf("unexpected error: %+v", resp)
	}
}

func TestSearchDocuments_MalformedBody(t *testing.T) {
	rr := do(t, newTestDeps().handler(), http.MethodPost, "/api/v1/collections/recipes/search", `{`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestSearchDocuments_EngineRejectionReason(t *testing.T) {
	d := newTestDeps()
	d.search.searchFn = func(string, *request.Request) (result.Result, error) {
		engineErr := &engine.Error{
			Op:         engine.OpSearch,
			Status:     400,
			RootCauses: []string{"Failed to parse query [status:(]"},
			Err:        engine.ErrBadRequest,
		}
		return result.Result{}, fmt.Errorf("search recipes: %w", fmt.Errorf("%w: %w", domain.ErrInvalidRequest, engineErr))
	}

	rr := do(t, d.handler(), http.MethodPost, "/api/v1/collections/recipes/search", `{"q":"status:("}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decode[ErrorResponse](t, rr)
	if resp.Message != "invalid request: Failed to parse query [status:(]" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
		wantBody ErrorCode
		wantMsg  string
	}{
		{fmt.Errorf("get mapping: %w", domain.ErrNotFound), http.StatusNotFound, ErrorCodeNotFound, "not found"},
		{domain.ErrAlreadyExists, http.StatusConflict, ErrorCodeAlreadyExists, "already exists"},
		{fmt.Errorf("x: %w", domain.ErrTimeout), http.StatusGatewayTimeout, ErrorCodeTimeout, "timeout"},
		{domain.ErrUnavailable, http.StatusServiceUnavailable, ErrorCodeUnavailable, "unavailable"},
		{domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProvider, "embedding provider error"},
		{errors.New("secret internals"), http.StatusInternalServerError, ErrorCodeInternalError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(string(tt.wantBody), func(t *testing.T) {
			d := newTestDeps()
			d.search.searchFn = func(string, *request.Request) (result.Result, error) {
				return result.Result{}, tt.err
			}

			rr := do(t, d.handler(), http.MethodGet, "/api/v1/collections/recipes/search", "")
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			resp := decode[ErrorResponse](t, rr)
			if resp.Code != tt.wantBody || resp.Message != tt.wantMsg {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

// --- Documents ---

func TestGetDocument(t *testing.T) {
	d := newTestDeps()
	d.docs.getFn = func(collection, key string) (domdoc.Document, error) {
		if collection != "persons" || key != "urn:p:1" {
			t.Errorf("get %s/%s", collection, key)
		}
		return domdoc.Document{"urn": "urn:p:1", "name": "Ada"}, nil
	}

	rr := do(t, d.handler(), http.MethodGet, "/api/v1/collections/persons/documents/urn:p:1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if doc := decode[map[string]any](t, rr); doc["name"] != "Ada" {
		t.Errorf("doc = %v", doc)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	d := newTestDeps()
	d.docs.getFn = func(string, string) (domdoc.Document, error) { return nil, domain.ErrDocumentNotFound }

	rr := do(t, d.handler(), http.MethodGet, "/api/v1/collections/persons/documents/urn:p:9", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr); resp.Code != ErrorCodeDocumentNotFound {
		t.Errorf("code = %s", resp.Code)
	}
}

func TestIndexDocument(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantURN  any
	}{
		{"path key fills urn", `{"title":"T"}`, http.StatusOK, "urn:a:1"},
		{"matching body key", `{"urn":"urn:a:1","title":"T"}`, http.StatusOK, "urn:a:1"},
		{"conflicting body key", `{"urn":"urn:a:2"}`, http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			var indexed domdoc.Document
			d.docs.indexFn = func(_ string, doc domdoc.Document) (string, error) {
				indexed = doc
				return "urn:a:1", nil
			}

			rr := do(t, d.handler(), http.MethodPut, "/api/v1/collections/articles/documents/urn:a:1", tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				if indexed != nil {
					t.Error("document must not be indexed")
				}
				return
			}
			if indexed["urn"] != tt.wantURN {
				t.Errorf("indexed urn = %v", indexed["urn"])
			}
			if resp := decode[IndexResponse](t, rr); resp.Key != "urn:a:1" {
				t.Errorf("key = %q", resp.Key)
			}
		})
	}
}

func TestUpdateDocument(t *testing.T) {
	d := newTestDeps()
	d.docs.updateFn = func(_, key string, partial domdoc.Document) (bool, error) {
		if key != "urn:a:1" || partial["title"] != "New" {
			t.Errorf("update %s with %v", key, partial)
		}
		return false, nil
	}

	rr := do(t, d.handler(), http.MethodPatch, "/api/v1/collections/articles/documents/urn:a:1", `{"title":"New"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decode[IndexResponse](t, rr)
	if resp.Updated == nil || *resp.Updated {
		t.Errorf("updated = %v, want false", resp.Updated)
	}
}

func TestEnhanceDocument(t *testing.T) {
	d := newTestDeps()
	d.docs.enhance = func(_, key string, fields, event map[string]any) error {
		if key != "urn:a:1" || fields["summary"] != "S" || event["model"] != "m" {
			t.Errorf("enhance %s fields=%v event=%v", key, fields, event)
		}
		return nil
	}

	body := `{"fields":{"summary":"S"},"event":{"model":"m"}}`
	rr := do(t, d.handler(), http.MethodPatch, "/api/v1/collections/articles/documents/urn:a:1/enhance", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
}

func TestDeleteDocument(t *testing.T) {
	d := newTestDeps()
	var deleted string
	d.docs.deleteFn = func(_, key string) error {
		deleted = key
		return nil
	}

	rr := do(t, d.handler(), http.MethodDelete, "/api/v1/collections/articles/documents/urn:a:1", "")
	if rr.Code != http.StatusNoContent || deleted != "urn:a:1" {
		t.Fatalf("status = %d, deleted = %q", rr.Code, deleted)
	}
}

func TestDeleteByQuery(t *testing.T) {
	d := newTestDeps()
	d.docs.dbqFn = func(collection string, query map[string]any) (int64, error) {
		if collection != "rag_chunks" {
			t.Errorf("collection = %s", collection)
		}
		if _, ok := query["term"]; !ok {
			t.Errorf("query = %v", query)
		}
		return 4, nil
	}

	body := `{"query":{"term":{"base_urn":"urn:a:1"}}}`
	rr := do(t, d.handler(), http.MethodPost, "/api/v1/collections/rag_chunks/documents/_delete_by_query", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if resp := decode[DeleteByQueryResponse](t, rr); resp.Deleted != 4 {
		t.Errorf("deleted = %d", resp.Deleted)
	}
}

func TestListAndFetch(t *testing.T) {
	d := newTestDeps()
	d.docs.listFn = func(_ string, limit, offset int) ([]string, error) {
		if limit != 5 || offset != 10 {
			t.Errorf("list page = %d/%d", limit, offset)
		}
		return nil, nil
	}
	d.docs.fetchFn = func(_ string, limit, offset int) ([]domdoc.Document, error) {
		if limit != 0 || offset != 0 {
			t.Errorf("fetch page = %d/%d, want defaults", limit, offset)
		}
		return []domdoc.Document{{"urn": "a"}}, nil
	}
	h := d.handler()

	rr := do(t, h, http.MethodGet, "/api/v1/collections/guides/documents?limit=5&offset=10", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	if resp := decode[ListResponse](t, rr); resp.Items == nil || len(resp.Items) != 0 {
		t.Errorf("list items = %v, want empty array", resp.Items)
	}

	rr = do(t, h, http.MethodGet, "/api/v1/collections/guides/fetch", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("fetch status = %d", rr.Code)
	}
	if resp := decode[FetchResponse](t, rr); len(resp.Items) != 1 || resp.Items[0]["urn"] != "a" {
		t.Errorf("fetch items = %v", resp.Items)
	}
}

// --- Lifecycle ---

func TestRebuildCollection(t *testing.T) {
	d := newTestDeps()
	var got lifecycle.RebuildRequest
	d.lc.rebuildFn = func(_ context.Context, req lifecycle.RebuildRequest) (lifecycle.RebuildResult, error) {
		got = req
		return lifecycle.RebuildResult{Alias: req.Alias, OldIndex: "articles_v1", NewIndex: req.NewIndex, Copied: 7}, nil
	}

	rr := do(t, d.handler(), http.MethodPost, "/api/v1/collections/articles/rebuild",
		`{"new_index":"articles_v2","delete_old":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	want := lifecycle.RebuildRequest{Alias: "articles", NewIndex: "articles_v2", DeleteOld: true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("request = %+v", got)
	}
	resp := decode[map[string]any](t, rr)
	if resp["old_index"] != "articles_v1" || resp["copied"] != float64(7) {
		t.Errorf("response = %v", resp)
	}
}

func TestRebuildCollection_Conflict(t *testing.T) {
	d := newTestDeps()
	d.lc.rebuildFn = func(context.Context, lifecycle.RebuildRequest) (lifecycle.RebuildResult, error) {
		return lifecycle.RebuildResult{}, fmt.Errorf("create articles_v2: %w", domain.ErrAlreadyExists)
	}

	rr := do(t, d.handler(), http.MethodPost, "/api/v1/collections/articles/rebuild", `{"new_index":"articles_v2"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestRebuildCollection_SurvivesClientDisconnect(t *testing.T) {
	d := newTestDeps()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rebuildErr error
	d.lc.rebuildFn = func(rctx context.Context, req lifecycle.RebuildRequest) (lifecycle.RebuildResult, error) {
		cancel() // client goes away mid-reindex
		rebuildErr = rctx.Err()
		return lifecycle.RebuildResult{Alias: req.Alias, NewIndex: req.NewIndex}, nil
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/collections/articles/rebuild",
		strings.NewReader(`{"new_index":"articles_v2"}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	d.handler().ServeHTTP(rr, req)

	if rebuildErr != nil {
		t.Fatalf("rebuild context cancelled with the request: %v", rebuildErr)
	}
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestRebuildCollection_Async(t *testing.T) {
	d := newTestDeps()
	release := make(chan struct{})
	done := make(chan lifecycle.RebuildRequest, 1)
	d.lc.rebuildFn = func(rctx context.Context, req lifecycle.RebuildRequest) (lifecycle.RebuildResult, error) {
		<-release
		if rctx.Err() != nil {
			t.Errorf("background rebuild context done: %v", rctx.Err())
		}
		done <- req
		return lifecycle.RebuildResult{}, nil
	}

	s := NewServer(d.docs, d.bulk, d.search, d.lc, d.jobs, d.health, zap.NewNop())
	h := NewRouter(s, nil, zap.NewNop())

	rr := do(t, h, http.MethodPost, "/api/v1/collections/articles/rebuild",
		`{"new_index":"articles_v2","async":true}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	want := RebuildAccepted{Collection: "articles", NewIndex: "articles_v2", Status: "accepted"}
	if resp := decode[RebuildAccepted](t, rr); resp != want {
		t.Errorf("response = %+v", resp)
	}

	// The handler has returned while the migration is still running.
	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	if err := s.Wait(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait before finish = %v, want deadline exceeded", err)
	}

	close(release)
	if err := s.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got := <-done; got.Alias != "articles" || got.NewIndex != "articles_v2" {
		t.Errorf("request = %+v", got)
	}
}

func TestGetCollectionAlias(t *testing.T) {
	d := newTestDeps()
	d.lc.resolveFn = func(string) (domcol.Target, error) {
		return domcol.Target{State: domcol.StateAliased, Index: "articles_v2"}, nil
	}

	rr := do(t, d.handler(), http.MethodGet, "/api/v1/collections/articles/alias", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	want := AliasResponse{Collection: "articles", State: "aliased", Index: "articles_v2"}
	if resp := decode[AliasResponse](t, rr); resp != want {
		t.Errorf("response = %+v", resp)
	}
}

// --- Jobs, health, middleware ---

func TestGetJob(t *testing.T) {
	d := newTestDeps()
	d.jobs = &mockJobs{statusFn: func(id string) (job.Status, error) {
		if id == "missing" {
			return job.Status{}, domain.ErrJobNotFound
		}
		return job.Status{JobID: id, State: job.StateCompleted}, nil
	}}
	h := d.handler()

	rr := do(t, h, http.MethodGet, "/api/v1/jobs/j-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if st := decode[map[string]any](t, rr); st["status"] != "completed" || st["job_id"] != "j-1" {
		t.Errorf("status = %v", st)
	}

	rr = do(t, h, http.MethodGet, "/api/v1/jobs/missing", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing job status = %d", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr); resp.Code != ErrorCodeJobNotFound {
		t.Errorf("code = %s", resp.Code)
	}
}

func TestGetJob_NoQueue(t *testing.T) {
	d := newTestDeps()
	d.jobs = nil

	rr := do(t, d.handler(), http.MethodGet, "/api/v1/jobs/j-1", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		want   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusOK},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			d := newTestDeps()
			d.keys = []string{"secret"}
			d.health.report = healthuc.Report{
				Status: tt.status,
				Checks: map[string]healthuc.CheckResult{"engine": healthuc.CheckOK},
			}

			rr := do(t, d.handler(), http.MethodGet, "/health", "")
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			resp := decode[HealthResponse](t, rr)
			if resp.Status != string(tt.status) || resp.Checks["engine"] != "ok" {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestRouter_RequiresAuthAndSetsRequestID(t *testing.T) {
	d := newTestDeps()
	d.keys = []string{"secret"}
	h := d.handler()

	rr := do(t, h, http.MethodGet, "/api/v1/collections/articles/search", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/collections/articles/search", http.NoBody)
	req.Header.Set("Authorization", "Bearer secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status with token = %d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestJSONRecoverer(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	h := JSONRecoverer(zap.NewNop())(panicking)

	rr := do(t, h, http.MethodGet, "/", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr); resp.Code != ErrorCodeInternalError {
		t.Errorf("code = %s", resp.Code)
	}
}

func TestBulkUpsert(t *testing.T) {
	d := newTestDeps()
	var gotCollection string
	var gotDocs []domdoc.Document
	d.bulk.upsertFn = func(collection string, docs []domdoc.Document) []dombatch.Result {
		gotCollection, gotDocs = collection, docs
		return []dombatch.Result{
			dombatch.NewOK("urn:a:1"),
			dombatch.NewError("urn:a:2", domain.NewQueryError("failed to parse field [price]")),
			dombatch.NewError("urn:a:3", fmt.Errorf("bulk upsert: %w", errors.New("socket closed"))),
		}
	}

	rr := do(t, d.handler(), http.MethodPost, "/api/v1/collections/articles/documents/_bulk",
		`{"documents":[{"urn":"urn:a:1"},{"urn":"urn:a:2","price":"x"},{"urn":"urn:a:3"}]}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if gotCollection != "articles" || len(gotDocs) != 3 || gotDocs[1]["price"] != "x" {
		t.Errorf("upsert got %q %v", gotCollection, gotDocs)
	}

	resp := decode[BulkResponse](t, rr)
	if resp.Succeeded != 1 || resp.Failed != 2 {
		t.Errorf("succeeded/failed = %d/%d", resp.Succeeded, resp.Failed)
	}
	if resp.Items[0].Status != "ok" || resp.Items[0].Error != nil {
		t.Errorf("items[0] = %+v", resp.Items[0])
	}
	if e := resp.Items[1].Error; e == nil || e.Code != ErrorCodeBadRequest ||
		e.Message != "invalid request: failed to parse field [price]" {
		t.Errorf("items[1].error = %+v", e)
	}
	if e := resp.Items[2].Error; e == nil || e.Code != ErrorCodeInternalError || e.Message != "internal error" {
		t.Errorf("items[2].error = %+v", e)
	}
}

func TestBulkUpsert_EmptyBody(t *testing.T) {
	d := newTestDeps()
	rr := do(t, d.handler(), http.MethodPost, "/api/v1/collections/articles/documents/_bulk", `{"documents":[]}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestBulkDelete(t *testing.T) {
	d := newTestDeps()
	d.bulk.deleteFn = func(_ string, keys []string) []dombatch.Result {
		out := make([]dombatch.Result, len(keys))
		for i, k := range keys {
			if k == "missing" {
				out[i] = dombatch.NewError(k, fmt.Errorf("delete: %w", domain.ErrDocumentNotFound))
				continue
			}
			out[i] = dombatch.NewOK(k)
		}
		return out
	}

	rr := do(t, d.handler(), http.MethodPost, "/api/v1/collections/articles/documents/_bulk_delete",
		`{"keys":["urn:a:1","missing"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decode[BulkResponse](t, rr)
	if len(resp.Items) != 2 || resp.Items[1].Key != "missing" {
		t.Fatalf("items = %+v", resp.Items)
	}
	if e := resp.Items[1].Error; e == nil || e.Code != ErrorCodeDocumentNotFound {
		t.Errorf("items[1].error = %+v", e)
	}
}
