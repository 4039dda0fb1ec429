package document

import (
	"context"

	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/job"
	"github.com/kailas-cloud/docsearch/internal/repository/cache"
)

// Repository defines the storage contract for documents.
type Repository interface {
	Get(ctx context.Context, collection, key string) (domdoc.Document, error)
	Index(ctx context.Context, collection, key string, doc domdoc.Document) error
	Update(ctx context.Context, collection, key string, doc domdoc.Document) error
	Enhance(ctx context.Context, collection, key string, fields, event map[string]any, updatedAt string) error
	Delete(ctx context.Context, collection, key string) error
	DeleteByQuery(ctx context.Context, collection string, query map[string]any) (int64, error)
	List(ctx context.Context, collection string, limit, offset int) ([]string, error)
	Fetch(ctx context.Context, collection string, limit, offset int) ([]domdoc.Document, error)
}

// Cache is the optional read-through document cache.
type Cache interface {
	GetOrLoad(ctx context.Context, collection, key string, load cache.Loader) (domdoc.Document, error)
	Invalidate(ctx context.Context, collection, key string)
}

// Enqueuer schedules embedding jobs for freshly written documents.
type Enqueuer interface {
	Enqueue(ctx context.Context, j job.Job) (string, error)
}
