package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Connector opens the engine store.
type Connector func(ctx context.Context) (Store, error)

// Bootstrapper prepares a freshly connected store, e.g. creates missing collections.
type Bootstrapper func(ctx context.Context, s Store) error

// Handle is a lazily initialized, process-wide engine store.
// The first caller connects and bootstraps; later callers take the fast path.
// A failed connect or bootstrap is not cached, so the next call retries.
type Handle struct {
	connect   Connector
	bootstrap Bootstrapper

	mu    sync.Mutex
	store atomic.Pointer[storeRef]
}

type storeRef struct{ Store }

var _ Store = (*Handle)(nil)

// NewHandle creates a handle. bootstrap may be nil.
func NewHandle(connect Connector, bootstrap Bootstrapper) *Handle {
	return &Handle{connect: connect, bootstrap: bootstrap}
}

// Get returns the connected store, initializing it on first use.
func (h *Handle) Get(ctx context.Context) (Store, error) {
	if ref := h.store.Load(); ref != nil {
		return ref.Store, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if ref := h.store.Load(); ref != nil {
		return ref.Store, nil
	}

	s, err := h.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect engine: %w", err)
	}
	if h.bootstrap != nil {
		if err := h.bootstrap(ctx, s); err != nil {
			return nil, fmt.Errorf("bootstrap engine: %w", err)
		}
	}

	h.store.Store(&storeRef{s})
	return s, nil
}

// Initialized reports whether the store has been connected.
func (h *Handle) Initialized() bool {
	return h.store.Load() != nil
}

// Ping implements Pinger.
func (h *Handle) Ping(ctx context.Context) error {
	s, err := h.Get(ctx)
	if err != nil {
		return err
	}
	return s.Ping(ctx)
}

// CreateIndex implements IndexManager.
func (h *Handle) CreateIndex(ctx context.Context, name string, def *IndexDefinition) error {
	s, err := h.Get(ctx)
	if err != nil {
		return err
	}
	return s.CreateIndex(ctx, name, def)
}

// DeleteIndex implements IndexManager.
func (h *Handle) DeleteIndex(ctx context.Context, name string) error {
	s, err := h.Get(ctx)
	if err != nil {
		return err
	}
	return s.DeleteIndex(ctx, name)
}

// IndexExists implements IndexManager.
func (h *Handle) IndexExists(ctx context.Context, name string) (bool, error) {
	s, err := h.Get(ctx)
	if err != nil {
		return false, err
	}
	return s.IndexExists(ctx, name)
}

// Refresh implements IndexManager.
func (h *Handle) Refresh(ctx context.Context, name string) error {
	s, err := h.Get(ctx)
	if err != nil {
		return err
	}
	return s.Refresh(ctx, name)
}

// AliasExists implements AliasManager.
func (h *Handle) AliasExists(ctx context.Context, alias string) (bool, error) {
	s, err := h.Get(ctx)
	if err != nil {
		return false, err
	}
	return s.AliasExists(ctx, alias)
}

// AliasTargets implements AliasManager.
func (h *Handle) AliasTargets(ctx context.Context, alias string) ([]string, error) {
	s, err := h.Get(ctx)
	if err != nil {
		return nil, err
	}
	return s.AliasTargets(ctx, alias)
}

// UpdateAliases implements AliasManager.
func (h *Handle) UpdateAliases(ctx context.Context, actions []AliasAction) error {
	s, err := h.Get(ctx)
	if err != nil {
		return err
	}
	return s.UpdateAliases(ctx, actions)
}

// Reindex implements Reindexer.
func (h *Handle) Reindex(ctx context.Context, req ReindexRequest) (*ReindexResult, error) {
	s, err := h.Get(ctx)
	if err != nil {
		return nil, err
	}
	return s.Reindex(ctx, req)
}

// GetDocument implements DocumentStore.
func (h *Handle) GetDocument(ctx context.Context, index, id string) (map[string]any, error) {
	s, err := h.Get(ctx)
	if err != nil {
		return nil, err
	}
	return s.GetDocument(ctx, index, id)
}

// IndexDocument implements DocumentStore.
func (h *Handle) IndexDocument(ctx context.Context, index, id string, doc map[string]any, refresh Refresh) error {
	s, err := h.Get(ctx)
	if err != nil {
		return err
	}
	return s.IndexDocument(ctx, index, id, doc, refresh)
}

// UpdateDocument implements DocumentStore.
func (h *Handle) UpdateDocument(ctx context.Context, index, id string, upd DocumentUpdate, refresh Refresh) error {
	s, err := h.Get(ctx)
	if err != nil {
		return err
	}
	return s.UpdateDocument(ctx, index, id, upd, refresh)
}

// DeleteDocument implements DocumentStore.
func (h *Handle) DeleteDocument(ctx context.Context, index, id string, refresh Refresh) error {
	s, err := h.Get(ctx)
	if err != nil {
		return err
	}
	return s.DeleteDocument(ctx, index, id, refresh)
}

// DeleteByQuery implements DocumentStore.
func (h *Handle) DeleteByQuery(ctx context.Context, index string, query map[string]any) (int64, error) {
	s, err := h.Get(ctx)
	if err != nil {
		return 0, err
	}
	return s.DeleteByQuery(ctx, index, query)
}

// BulkIndex implements DocumentStore.
func (h *Handle) BulkIndex(ctx context.Context, index string, docs []BulkDocument, refresh Refresh) (*BulkResult, error) {
	s, err := h.Get(ctx)
	if err != nil {
		return nil, err
	}
	return s.BulkIndex(ctx, index, docs, refresh)
}

// Search implements Searcher.
func (h *Handle) Search(ctx context.Context, index string, body map[string]any) (*SearchResponse, error) {
	s, err := h.Get(ctx)
	if err != nil {
		return nil, err
	}
	return s.Search(ctx, index, body)
}

// GetMapping implements MappingReader.
func (h *Handle) GetMapping(ctx context.Context, index string) (map[string]Property, error) {
	s, err := h.Get(ctx)
	if err != nil {
		return nil, err
	}
	return s.GetMapping(ctx, index)
}
