package docsearch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/docsearch/internal/domain"
	domcol "github.com/kailas-cloud/docsearch/internal/domain/collection"
	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/search/request"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
	"github.com/kailas-cloud/docsearch/internal/usecase/lifecycle"
)

func TestNew_NoAddress(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error when no address provided")
	}
}

func TestNew_ConflictingAuth(t *testing.T) {
	_, err := New(context.Background(),
		WithElasticsearch("http://localhost:9200"),
		WithAPIKey("key"),
		WithBasicAuth("elastic", "secret"),
	)
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Fatalf("expected auth conflict error, got %v", err)
	}
}

func TestNew_ConnectsWithoutBootstrap(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), WithElasticsearch(srv.URL), WithBootstrap(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if n := requests.Load(); n < 2 {
		t.Errorf("expected readiness and ping requests, got %d", n)
	}
}

func TestClient_Search(t *testing.T) {
	searchUC := &mockSearchUC{
		searchFn: func(_ context.Context, col string, req *request.Request) (result.Result, error) {
			if col != "recipes" {
				t.Errorf("collection = %q", col)
			}
			if req.Query() != "soup" {
				t.Errorf("query = %q", req.Query())
			}
			hits := []domdoc.Document{{"title": "Lentil soup", "_score": 2.0}}
			facets := result.Facets{"tags": {{Value: "vegan", Count: 4}}}
			return result.New(hits, facets, 9), nil
		},
	}
	c := &Client{searchSvc: searchUC}

	res, err := c.Search(context.Background(), "recipes", SearchRequest{
		Query:       "soup",
		Filters:     []string{"tags:vegan"},
		FacetFields: []string{"tags"},
		Limit:       5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 9 || len(res.Hits) != 1 || res.Hits[0]["title"] != "Lentil soup" {
		t.Errorf("result = %+v", res)
	}
	if got := res.Facets["tags"]; len(got) != 1 || got[0].Value != "vegan" || got[0].Count != 4 {
		t.Errorf("facets = %+v", res.Facets)
	}
	if searchUC.params.Limit != 5 || len(searchUC.params.Filters) != 1 {
		t.Errorf("params = %+v", searchUC.params)
	}
}

func TestClient_Search_InvalidRequest(t *testing.T) {
	c := &Client{searchSvc: &mockSearchUC{}}

	_, err := c.Search(context.Background(), "recipes", SearchRequest{Limit: -1})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestClient_Search_KeepsSentinel(t *testing.T) {
	c := &Client{searchSvc: &mockSearchUC{
		searchFn: func(context.Context, string, *request.Request) (result.Result, error) {
			return result.Result{}, domain.NewQueryError("unknown field [foo]")
		},
	}}

	_, err := c.Search(context.Background(), "recipes", SearchRequest{})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	var qe *QueryError
	if !errors.As(err, &qe) || qe.Reason != "unknown field [foo]" {
		t.Errorf("expected QueryError with reason, got %v", err)
	}
}

func TestClient_Rebuild(t *testing.T) {
	lc := &mockLifecycleUC{
		rebuildFn: func(_ context.Context, req lifecycle.RebuildRequest) (lifecycle.RebuildResult, error) {
			want := lifecycle.RebuildRequest{Alias: "articles", NewIndex: "articles_v2", DeleteOld: true}
			if req.Alias != want.Alias || req.NewIndex != want.NewIndex || !req.DeleteOld || req.Definition != nil {
				t.Errorf("request = %+v", req)
			}
			return lifecycle.RebuildResult{
				Alias: "articles", OldIndex: "articles", NewIndex: "articles_v2",
				Promoted: true, Copied: 3, DeletedOld: true, Took: time.Second,
			}, nil
		},
	}
	c := &Client{lcSvc: lc}

	res, err := c.Rebuild(context.Background(), RebuildRequest{
		Collection: "articles", NewIndex: "articles_v2", DeleteOld: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.PromotedLegacy || res.Copied != 3 || res.Collection != "articles" {
		t.Errorf("result = %+v", res)
	}
}

func TestClient_BackingIndex(t *testing.T) {
	lc := &mockLifecycleUC{
		resolveFn: func(_ context.Context, alias string) (domcol.Target, error) {
			if alias == "missing" {
				return domcol.Target{State: domcol.StateAbsent}, nil
			}
			return domcol.Target{State: domcol.StateAliased, Index: alias + "_v1"}, nil
		},
	}
	c := &Client{lcSvc: lc}

	idx, err := c.BackingIndex(context.Background(), "guides")
	if err != nil || idx != "guides_v1" {
		t.Fatalf("BackingIndex = %q, %v", idx, err)
	}
	if _, err := c.BackingIndex(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_Bootstrap(t *testing.T) {
	c := &Client{lcSvc: &mockLifecycleUC{
		bootstrapFn: func(context.Context) ([]string, error) { return nil, domain.ErrUnavailable },
	}}

	if _, err := c.Bootstrap(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

// --- observer ---

func TestObserver_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	obs.observe("search", time.Now(), nil)
	obs.observe("search", time.Now(), errors.New("boom"))
	obs.observe("search", time.Now(), domain.NewQueryError("unbalanced quotes"))
	obs.observe("rebuild", time.Now(), fmt.Errorf("rebuild: %w", domain.ErrAlreadyExists))

	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("search", "ok")); got != 1 {
		t.Errorf("search ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("search", "error")); got != 1 {
		t.Errorf("search error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("search", "invalid")); got != 1 {
		t.Errorf("search invalid = %v, want 1", got)
	}
	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("rebuild", "conflict")); got != 1 {
		t.Errorf("rebuild conflict = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(obs.metrics.duration); n != 2 {
		t.Errorf("duration series = %d, want 2", n)
	}
}

func TestObserver_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("second client on the same registry: %v", err)
	}
	if first.metrics.operations != second.metrics.operations {
		t.Error("expected the second observer to reuse registered collectors")
	}
}

func TestObserver_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs, err := newObserver(logger, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	obs.observe("document.get", time.Now(), errors.New("boom"), "collection", "guides")

	out := buf.String()
	for _, want := range []string{"level=WARN", "op=document.get", "outcome=error", "collection=guides", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %q", out, want)
		}
	}
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{fmt.Errorf("get: %w", domain.ErrDocumentNotFound), "not_found"},
		{fmt.Errorf("resolve: %w", domain.ErrNotFound), "not_found"},
		{domain.NewQueryError("bad sort"), "invalid"},
		{fmt.Errorf("rebuild: %w", domain.ErrAlreadyExists), "conflict"},
		{fmt.Errorf("search: %w", domain.ErrTimeout), "unavailable"},
		{fmt.Errorf("search: %w", domain.ErrUnavailable), "unavailable"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		if got := outcomeOf(tt.err); got != tt.want {
			t.Errorf("outcomeOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestObserver_Nil(t *testing.T) {
	var obs *observer
	obs.observe("noop", time.Now(), nil)
}
