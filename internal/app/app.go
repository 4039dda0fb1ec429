// Package app is the composition root shared by the API server, the
// enrichment worker and the operator CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/catalog"
	"github.com/kailas-cloud/docsearch/internal/config"
	dbRedis "github.com/kailas-cloud/docsearch/internal/db/redis"
	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/domain/search/request"
	"github.com/kailas-cloud/docsearch/internal/engine"
	"github.com/kailas-cloud/docsearch/internal/engine/elastic"
	"github.com/kailas-cloud/docsearch/internal/metrics"
	"github.com/kailas-cloud/docsearch/internal/repository/cache"
	collectionrepo "github.com/kailas-cloud/docsearch/internal/repository/collection"
	documentrepo "github.com/kailas-cloud/docsearch/internal/repository/document"
	"github.com/kailas-cloud/docsearch/internal/repository/embcache"
	"github.com/kailas-cloud/docsearch/internal/repository/jobqueue"
	"github.com/kailas-cloud/docsearch/internal/repository/rebuildlock"
	searchrepo "github.com/kailas-cloud/docsearch/internal/repository/search"
	openaiEmb "github.com/kailas-cloud/docsearch/internal/transport/openai"
	batchuc "github.com/kailas-cloud/docsearch/internal/usecase/batch"
	documentuc "github.com/kailas-cloud/docsearch/internal/usecase/document"
	embeddinguc "github.com/kailas-cloud/docsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/docsearch/internal/usecase/health"
	"github.com/kailas-cloud/docsearch/internal/usecase/lifecycle"
	searchuc "github.com/kailas-cloud/docsearch/internal/usecase/search"
)

// Services holds everything the entrypoints serve.
type Services struct {
	Engine    *engine.Handle
	Redis     *dbRedis.Store // nil when redis.addrs is empty
	Catalog   *catalog.Catalog
	DocRepo   *documentrepo.Repo
	Documents *documentuc.Service
	Batch     *batchuc.Service
	Search    *searchuc.Service
	Lifecycle *lifecycle.Service
	Queue     *jobqueue.Queue // nil without Redis
	Health    *healthuc.Service
}

// Close releases the Redis connection.
func (s *Services) Close() {
	if s.Redis != nil {
		s.Redis.Close()
	}
}

// NewEngine returns a lazily connected engine handle. The first call that
// reaches the cluster waits for readiness and, unless disabled, creates the
// missing catalog collections.
func NewEngine(cfg config.Config, cat *catalog.Catalog) (*engine.Handle, error) {
	st, err := elastic.NewStore(elastic.Config{
		Addresses:      cfg.Engine.Addresses,
		Username:       cfg.Engine.Username,
		Password:       cfg.Engine.Password,
		APIKey:         cfg.Engine.APIKey,
		RequestTimeout: time.Duration(cfg.Engine.RequestTimeoutSec) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("create engine store: %w", err)
	}

	readiness := time.Duration(cfg.Engine.ReadinessTimeout) * time.Second
	connect := func(ctx context.Context) (engine.Store, error) {
		if err := st.WaitForReady(ctx, readiness); err != nil {
			return nil, err
		}
		return st, nil
	}

	var boot engine.Bootstrapper
	if cfg.Engine.BootstrapEnabled() {
		boot = lifecycle.Bootstrapper(newCollectionRepo, cat)
	}
	return engine.NewHandle(connect, boot), nil
}

func newCollectionRepo(s engine.Store) lifecycle.Repository {
	return collectionrepo.New(s)
}

// NewRedis connects to Redis and waits until it answers. It returns nil when
// no address is configured.
func NewRedis(ctx context.Context, cfg config.Config) (*dbRedis.Store, error) {
	if len(cfg.Redis.Addrs) == 0 {
		return nil, nil
	}
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Redis.Addrs,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("redis not ready: %w", err)
	}
	return store, nil
}

// NewEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
// The cache layer is skipped when store is nil.
func NewEmbedder(cfg config.EmbeddingConfig, store *dbRedis.Store, keyPrefix string, logger *zap.Logger) domain.Embedder {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, embcache.Config{
			Prefix:     keyPrefix,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			TTL:        time.Duration(cfg.CacheTTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, cfg.BatchSize, logger)
}

// NewServices builds repositories and use cases on top of the engine handle
// and the optional Redis store. Document writes enqueue embedding jobs only
// when withJobs is set and Redis is available.
func NewServices(cfg config.Config, handle *engine.Handle, cat *catalog.Catalog, redis *dbRedis.Store, withJobs bool) *Services {
	docRepo := documentrepo.New(handle)
	docs := documentuc.New(docRepo).WithPagination(cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	bulk := batchuc.New(docRepo, docs)

	searchSvc := searchuc.New(searchrepo.New(handle), request.Limits{
		DefaultLimit:      cfg.Search.DefaultLimit,
		MaxLimit:          cfg.Search.MaxLimit,
		DefaultFacetLimit: cfg.Search.DefaultFacetLimit,
		HighlightPreTag:   cfg.Search.HighlightPreTag,
		HighlightPostTag:  cfg.Search.HighlightPostTag,
	})

	lc := lifecycle.New(collectionrepo.New(handle), cat, cfg.Lifecycle.ReindexTimeout())

	svc := &Services{
		Engine:    handle,
		Redis:     redis,
		Catalog:   cat,
		DocRepo:   docRepo,
		Documents: docs,
		Batch:     bulk,
		Search:    searchSvc,
		Lifecycle: lc,
	}

	// A nil *Store must not reach health.New as a non-nil Pinger.
	var redisPinger healthuc.Pinger
	if redis != nil {
		redisPinger = redis
		lc.WithLocker(rebuildlock.New(redis, cfg.Cache.KeyPrefix, lifecycle.LockTTL(cfg.Lifecycle.ReindexTimeout())))

		if cfg.Cache.Enabled {
			c := cache.New(redis, cfg.Cache.KeyPrefix,
				time.Duration(cfg.Cache.TTLSec)*time.Second, metrics.DocumentCacheTotal)
			docs.WithCache(c)
			bulk.WithCache(c)
		}

		svc.Queue = jobqueue.New(redis, jobqueue.Config{
			Key:          cfg.Queue.Key,
			StatusPrefix: cfg.Queue.StatusPrefix,
			StatusTTL:    time.Duration(cfg.Queue.StatusTTLSec) * time.Second,
		})
		if withJobs {
			docs.WithEnqueuer(svc.Queue)
			bulk.WithEnqueuer(svc.Queue)
		}
	}
	svc.Health = healthuc.New(handle, redisPinger)

	return svc
}
