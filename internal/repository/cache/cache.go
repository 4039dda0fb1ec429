// Package cache is a best-effort read-through document cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/docsearch/internal/db"
	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/logger"
)

// store is the consumer interface for the cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Loader reads a document from the source of truth.
type Loader func(ctx context.Context) (domdoc.Document, error)

// Cache stores documents as JSON under <prefix>doc:<collection>:<key>.
// Store failures are logged and never returned to the caller.
type Cache struct {
	store      store
	prefix     string
	ttl        time.Duration
	group      singleflight.Group
	cacheTotal *prometheus.CounterVec
}

// New creates a document cache. cacheTotal has label "result" ("hit"/"miss") and may be nil.
func New(s store, prefix string, ttl time.Duration, cacheTotal *prometheus.CounterVec) *Cache {
	return &Cache{store: s, prefix: prefix, ttl: ttl, cacheTotal: cacheTotal}
}

// GetOrLoad returns the cached document or calls load once per key across
// concurrent callers and caches its result. Load errors are not cached.
func (c *Cache) GetOrLoad(ctx context.Context, collection, key string, load Loader) (domdoc.Document, error) {
	k := c.key(collection, key)

	if doc, ok := c.get(ctx, k); ok {
		c.inc("hit")
		return doc, nil
	}
	c.inc("miss")

	v, err, _ := c.group.Do(k, func() (any, error) {
		doc, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.put(ctx, k, doc)
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(domdoc.Document).Clone(), nil
}

// Invalidate drops the cached copy of key.
func (c *Cache) Invalidate(ctx context.Context, collection, key string) {
	k := c.key(collection, key)
	if err := c.store.Del(ctx, k); err != nil {
		logger.FromContext(ctx).Warn("Failed to invalidate cached document", zap.String("key", k), zap.Error(err))
	}
}

func (c *Cache) key(collection, key string) string {
	return c.prefix + "doc:" + collection + ":" + key
}

func (c *Cache) get(ctx context.Context, k string) (domdoc.Document, bool) {
	data, err := c.store.Get(ctx, k)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			logger.FromContext(ctx).Warn("Failed to read cached document", zap.String("key", k), zap.Error(err))
		}
		return nil, false
	}
	var doc domdoc.Document
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		logger.FromContext(ctx).Warn("Dropping undecodable cached document", zap.String("key", k))
		return nil, false
	}
	return doc, true
}

func (c *Cache) put(ctx context.Context, k string, doc domdoc.Document) {
	data, err := json.Marshal(doc)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to encode document for cache", zap.String("key", k), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, k, data, c.ttl); err != nil {
		logger.FromContext(ctx).Warn("Failed to cache document", zap.String("key", k), zap.Error(err))
	}
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
