// Package engine defines the document search engine contract: index and alias
// management, blocking reindex, document writes, search and mapping
// introspection. Drivers live in subpackages.
package engine

import (
	"context"
	"time"
)

// Store is the engine facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	IndexManager
	AliasManager
	Reindexer
	DocumentStore
	Searcher
	MappingReader
}

// Pinger checks engine connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IndexManager provides concrete index lifecycle operations.
type IndexManager interface {
	// CreateIndex returns ErrIndexExists when name is taken.
	CreateIndex(ctx context.Context, name string, def *IndexDefinition) error
	DeleteIndex(ctx context.Context, name string) error
	// IndexExists reports whether name resolves to an index or an alias.
	IndexExists(ctx context.Context, name string) (bool, error)
	Refresh(ctx context.Context, name string) error
}

// AliasManager provides alias resolution and atomic alias updates.
type AliasManager interface {
	AliasExists(ctx context.Context, alias string) (bool, error)
	// AliasTargets returns the concrete indices behind alias, sorted.
	AliasTargets(ctx context.Context, alias string) ([]string, error)
	// UpdateAliases applies all actions in a single atomic request.
	UpdateAliases(ctx context.Context, actions []AliasAction) error
}

// Reindexer copies every document from one index into another.
type Reindexer interface {
	// Reindex blocks until the copy completes (or req.Timeout elapses) and refreshes dest.
	Reindex(ctx context.Context, req ReindexRequest) (*ReindexResult, error)
}

// DocumentStore provides single-document and by-query writes.
type DocumentStore interface {
	GetDocument(ctx context.Context, index, id string) (map[string]any, error)
	IndexDocument(ctx context.Context, index, id string, doc map[string]any, refresh Refresh) error
	UpdateDocument(ctx context.Context, index, id string, upd DocumentUpdate, refresh Refresh) error
	DeleteDocument(ctx context.Context, index, id string, refresh Refresh) error
	DeleteByQuery(ctx context.Context, index string, query map[string]any) (int64, error)
	BulkIndex(ctx context.Context, index string, docs []BulkDocument, refresh Refresh) (*BulkResult, error)
}

// Searcher executes native query bodies.
type Searcher interface {
	Search(ctx context.Context, index string, body map[string]any) (*SearchResponse, error)
}

// MappingReader introspects live field mappings.
type MappingReader interface {
	// GetMapping returns the top-level properties of index (or of the indices behind an alias).
	GetMapping(ctx context.Context, index string) (map[string]Property, error)
}

// Refresh controls write visibility.
type Refresh string

const (
	// RefreshNone returns without waiting for the write to become searchable.
	RefreshNone Refresh = ""
	// RefreshWaitFor blocks until the next refresh makes the write visible.
	RefreshWaitFor Refresh = "wait_for"
	// RefreshTrue forces an immediate refresh.
	RefreshTrue Refresh = "true"
)

// AliasActionType is the verb of an alias action.
type AliasActionType string

const (
	// AliasAdd points alias at an index.
	AliasAdd AliasActionType = "add"
	// AliasRemove detaches alias from an index.
	AliasRemove AliasActionType = "remove"
)

// AliasAction is one entry of an atomic alias update.
type AliasAction struct {
	Type  AliasActionType
	Index string
	Alias string
}

// ReindexRequest describes a blocking full copy.
type ReindexRequest struct {
	Source  string
	Dest    string
	Timeout time.Duration
}

// ReindexResult summarizes a completed reindex.
type ReindexResult struct {
	Took    time.Duration
	Total   int64
	Created int64
	Updated int64
}

// Script is an engine-side update script.
type Script struct {
	Source string         `json:"source"`
	Lang   string         `json:"lang,omitempty"`
	Params map[string]any `json:"params,omitempty"`
}

// DocumentUpdate is a partial document or a script, never both.
type DocumentUpdate struct {
	Doc    map[string]any `json:"doc,omitempty"`
	Script *Script        `json:"script,omitempty"`
}

// BulkDocument is one document of a bulk index request.
type BulkDocument struct {
	ID     string
	Source map[string]any
}

// BulkFailure describes a rejected bulk item.
type BulkFailure struct {
	ID     string
	Status int
	Reason string
}

// BulkResult summarizes a bulk request.
type BulkResult struct {
	Indexed int
	Failed  []BulkFailure
}

// SearchResponse is the decoded engine search response.
type SearchResponse struct {
	Took         int64                  `json:"took"`
	TimedOut     bool                   `json:"timed_out"`
	Hits         Hits                   `json:"hits"`
	Aggregations map[string]Aggregation `json:"aggregations,omitempty"`
}

// Hits holds the matched documents and the total count.
type Hits struct {
	Total    TotalHits `json:"total"`
	MaxScore *float64  `json:"max_score"`
	Hits     []Hit     `json:"hits"`
}

// TotalHits is the match count.
type TotalHits struct {
	Value    int64  `json:"value"`
	Relation string `json:"relation"`
}

// Hit is a single matched document.
type Hit struct {
	Index     string              `json:"_index"`
	ID        string              `json:"_id"`
	Score     *float64            `json:"_score"`
	Source    map[string]any      `json:"_source"`
	Highlight map[string][]string `json:"highlight,omitempty"`
}

// Aggregation is a bucket aggregation result.
type Aggregation struct {
	Buckets []Bucket `json:"buckets"`
}

// Bucket is one terms bucket.
type Bucket struct {
	Key         any    `json:"key"`
	KeyAsString string `json:"key_as_string,omitempty"`
	DocCount    int64  `json:"doc_count"`
}
