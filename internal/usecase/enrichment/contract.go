package enrichment

import (
	"context"
	"time"

	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/job"
)

// Queue is the embedding job queue as seen by the worker.
type Queue interface {
	Pop(ctx context.Context, timeout time.Duration) (*job.Job, error)
	Len(ctx context.Context) (int64, error)
	MarkStarted(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, metadata map[string]any) error
	MarkFailed(ctx context.Context, id, msg string) error
}

// Documents applies embedding results to stored documents.
type Documents interface {
	Get(ctx context.Context, collection, key string) (domdoc.Document, error)
	Update(ctx context.Context, collection, key string, partial domdoc.Document) (bool, error)
	DeleteByQuery(ctx context.Context, collection string, query map[string]any) (int64, error)
}

// ChunkWriter bulk-writes retrieval chunks.
type ChunkWriter interface {
	BulkIndex(ctx context.Context, collection string, docs []domdoc.Document) (int, error)
}
