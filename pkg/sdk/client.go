package docsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/docsearch/internal/catalog"
	dbRedis "github.com/kailas-cloud/docsearch/internal/db/redis"
	dombatch "github.com/kailas-cloud/docsearch/internal/domain/batch"
	domcol "github.com/kailas-cloud/docsearch/internal/domain/collection"
	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/search/request"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
	"github.com/kailas-cloud/docsearch/internal/engine"
	"github.com/kailas-cloud/docsearch/internal/engine/elastic"
	"github.com/kailas-cloud/docsearch/internal/repository/cache"
	collectionrepo "github.com/kailas-cloud/docsearch/internal/repository/collection"
	documentrepo "github.com/kailas-cloud/docsearch/internal/repository/document"
	"github.com/kailas-cloud/docsearch/internal/repository/rebuildlock"
	searchrepo "github.com/kailas-cloud/docsearch/internal/repository/search"
	batchuc "github.com/kailas-cloud/docsearch/internal/usecase/batch"
	documentuc "github.com/kailas-cloud/docsearch/internal/usecase/document"
	"github.com/kailas-cloud/docsearch/internal/usecase/lifecycle"
	searchuc "github.com/kailas-cloud/docsearch/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultVectorDimensions = 384
	defaultReindexTimeout   = time.Hour
	defaultCacheTTL         = 5 * time.Minute
	redisKeyPrefix          = "docsearch:"
)

// Internal interfaces, swapped for fakes in tests.
type searchUseCase interface {
	Request(p request.Params) (*request.Request, error)
	Search(ctx context.Context, collection string, req *request.Request) (result.Result, error)
}

type lifecycleUseCase interface {
	Bootstrap(ctx context.Context) ([]string, error)
	Resolve(ctx context.Context, alias string) (domcol.Target, error)
	Rebuild(ctx context.Context, req lifecycle.RebuildRequest) (lifecycle.RebuildResult, error)
}

type documentUseCase interface {
	Get(ctx context.Context, collection, key string) (domdoc.Document, error)
	Index(ctx context.Context, collection string, doc domdoc.Document) (string, error)
	Update(ctx context.Context, collection, key string, partial domdoc.Document) (bool, error)
	Enhance(ctx context.Context, collection, key string, fields, event map[string]any) error
	Delete(ctx context.Context, collection, key string) error
	DeleteByQuery(ctx context.Context, collection string, query map[string]any) (int64, error)
	List(ctx context.Context, collection string, limit, offset int) ([]string, error)
	Fetch(ctx context.Context, collection string, limit, offset int) ([]domdoc.Document, error)
}

type bulkUseCase interface {
	Upsert(ctx context.Context, collection string, docs []domdoc.Document) []dombatch.Result
	Delete(ctx context.Context, collection string, keys []string) []dombatch.Result
}

// Client is the docsearch SDK entry point. It is safe for concurrent use.
type Client struct {
	engine    engine.Pinger
	redis     *dbRedis.Store
	searchSvc searchUseCase
	lcSvc     lifecycleUseCase
	docSvc    documentUseCase
	bulkSvc   bulkUseCase
	obs       *observer
}

// New creates a Client and connects to Elasticsearch, creating missing
// catalog collections unless WithBootstrap(false) is given. ctx bounds the
// initial connect.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		bootstrap:        true,
		vectorDimensions: defaultVectorDimensions,
		reindexTimeout:   defaultReindexTimeout,
		cacheTTL:         defaultCacheTTL,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("docsearch: elasticsearch address required (use WithElasticsearch)")
	}
	if cfg.apiKey != "" && cfg.username != "" {
		return nil, errors.New("docsearch: WithAPIKey and WithBasicAuth are mutually exclusive")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	st, err := elastic.NewStore(elastic.Config{
		Addresses: cfg.addrs,
		Username:  cfg.username,
		Password:  cfg.password,
		APIKey:    cfg.apiKey,
		Transport: cfg.transport,
	})
	if err != nil {
		return nil, fmt.Errorf("docsearch: create engine store: %w", err)
	}

	cat := catalog.New(cfg.vectorDimensions)
	var boot engine.Bootstrapper
	if cfg.bootstrap {
		boot = lifecycle.Bootstrapper(func(s engine.Store) lifecycle.Repository { return collectionrepo.New(s) }, cat)
	}
	handle := engine.NewHandle(func(ctx context.Context) (engine.Store, error) {
		if err := st.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			return nil, err
		}
		return st, nil
	}, boot)

	if _, err := handle.Get(ctx); err != nil {
		return nil, fmt.Errorf("docsearch: engine not ready: %w", err)
	}

	var redis *dbRedis.Store
	if len(cfg.redisAddrs) > 0 {
		redis, err = dbRedis.NewStore(dbRedis.Config{Addrs: cfg.redisAddrs, Password: cfg.redisPassword})
		if err != nil {
			return nil, fmt.Errorf("docsearch: create redis store: %w", err)
		}
		if err := redis.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			redis.Close()
			return nil, fmt.Errorf("docsearch: redis not ready: %w", err)
		}
	}

	return wireClient(handle, cat, redis, cfg, obs), nil
}

func wireClient(handle *engine.Handle, cat *catalog.Catalog, redis *dbRedis.Store, cfg *clientConfig, obs *observer) *Client {
	docRepo := documentrepo.New(handle)
	docSvc := documentuc.New(docRepo)
	bulkSvc := batchuc.New(docRepo, docSvc)
	lcSvc := lifecycle.New(collectionrepo.New(handle), cat, cfg.reindexTimeout)
	if redis != nil {
		c := cache.New(redis, redisKeyPrefix, cfg.cacheTTL, nil)
		docSvc.WithCache(c)
		bulkSvc.WithCache(c)
		lcSvc.WithLocker(rebuildlock.New(redis, redisKeyPrefix, lifecycle.LockTTL(cfg.reindexTimeout)))
	}

	return &Client{
		engine:    handle,
		redis:     redis,
		searchSvc: searchuc.New(searchrepo.New(handle), request.DefaultLimits()),
		lcSvc:     lcSvc,
		docSvc:    docSvc,
		bulkSvc:   bulkSvc,
		obs:       obs,
	}
}

// Close releases the Redis connection, if any.
func (c *Client) Close() {
	if c.redis != nil {
		c.redis.Close()
	}
}

// Ping checks cluster connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.engine.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search compiles req and runs it against collection.
func (c *Client) Search(ctx context.Context, collection string, req SearchRequest) (res SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err, "collection", collection) }()

	r, err := c.searchSvc.Request(request.Params{
		Query:            req.Query,
		Filters:          req.Filters,
		Fields:           req.Fields,
		Sort:             req.Sort,
		FacetFields:      req.FacetFields,
		Limit:            req.Limit,
		Offset:           req.Offset,
		FacetLimit:       req.FacetLimit,
		Highlight:        req.Highlight,
		HighlightFields:  req.HighlightFields,
		HighlightPreTag:  req.HighlightPreTag,
		HighlightPostTag: req.HighlightPostTag,
	})
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}

	out, err := c.searchSvc.Search(ctx, collection, r)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}
	return fromResult(&out), nil
}

// Rebuild copies a collection into a new index and swaps its alias.
func (c *Client) Rebuild(ctx context.Context, req RebuildRequest) (res RebuildResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("rebuild", start, err, "collection", req.Collection) }()

	out, err := c.lcSvc.Rebuild(ctx, lifecycle.RebuildRequest{
		Alias:     req.Collection,
		NewIndex:  req.NewIndex,
		DeleteOld: req.DeleteOld,
	})
	if err != nil {
		return RebuildResult{}, fmt.Errorf("rebuild: %w", err)
	}
	return RebuildResult{
		Collection:     out.Alias,
		OldIndex:       out.OldIndex,
		NewIndex:       out.NewIndex,
		PromotedLegacy: out.Promoted,
		Copied:         out.Copied,
		DeletedOld:     out.DeletedOld,
		Took:           out.Took,
	}, nil
}

// Bootstrap creates missing catalog collections and returns their names.
func (c *Client) Bootstrap(ctx context.Context) (created []string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("bootstrap", start, err) }()

	created, err = c.lcSvc.Bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return created, nil
}

// BackingIndex returns the concrete index behind collection, or ErrNotFound.
func (c *Client) BackingIndex(ctx context.Context, collection string) (index string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("resolve", start, err, "collection", collection) }()

	target, err := c.lcSvc.Resolve(ctx, collection)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", collection, err)
	}
	if target.State == domcol.StateAbsent {
		return "", fmt.Errorf("resolve %s: %w", collection, ErrNotFound)
	}
	return target.Index, nil
}

// Documents returns the document service for a given collection.
func (c *Client) Documents(collection string) *DocumentService {
	return &DocumentService{collection: collection, svc: c.docSvc, bulk: c.bulkSvc, obs: c.obs}
}

func fromResult(r *result.Result) SearchResult {
	hits := make([]Document, len(r.Hits()))
	for i, h := range r.Hits() {
		hits[i] = Document(h)
	}
	facets := make(map[string][]FacetValue, len(r.Facets()))
	for name, buckets := range r.Facets() {
		out := make([]FacetValue, len(buckets))
		for i, b := range buckets {
			out[i] = FacetValue{Value: b.Value, Count: b.Count}
		}
		facets[name] = out
	}
	return SearchResult{Hits: hits, Facets: facets, Total: r.Total()}
}
