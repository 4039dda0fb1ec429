package batch

import (
	"context"

	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/job"
)

// BulkWriter indexes many documents in one engine request.
type BulkWriter interface {
	BulkWrite(ctx context.Context, collection string, docs []domdoc.Document) (map[string]string, error)
}

// DocumentDeleter deletes a single document, invalidating any cached copy.
type DocumentDeleter interface {
	Delete(ctx context.Context, collection, key string) error
}

// Invalidator drops cached copies of written documents.
type Invalidator interface {
	Invalidate(ctx context.Context, collection, key string)
}

// Enqueuer schedules embedding jobs for freshly written documents.
type Enqueuer interface {
	Enqueue(ctx context.Context, j job.Job) (string, error)
}
