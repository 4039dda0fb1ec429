package chi

import (
	"context"

	dombatch "github.com/kailas-cloud/docsearch/internal/domain/batch"
	domcol "github.com/kailas-cloud/docsearch/internal/domain/collection"
	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/job"
	"github.com/kailas-cloud/docsearch/internal/domain/search/request"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/docsearch/internal/usecase/health"
	"github.com/kailas-cloud/docsearch/internal/usecase/lifecycle"
)

// Documents is the document API consumed by the server.
type Documents interface {
	Get(ctx context.Context, collection, key string) (domdoc.Document, error)
	Index(ctx context.Context, collection string, doc domdoc.Document) (string, error)
	Update(ctx context.Context, collection, key string, partial domdoc.Document) (bool, error)
	Enhance(ctx context.Context, collection, key string, fields, event map[string]any) error
	Delete(ctx context.Context, collection, key string) error
	DeleteByQuery(ctx context.Context, collection string, query map[string]any) (int64, error)
	List(ctx context.Context, collection string, limit, offset int) ([]string, error)
	Fetch(ctx context.Context, collection string, limit, offset int) ([]domdoc.Document, error)
}

// Bulk runs multi-document writes with per-item results.
type Bulk interface {
	Upsert(ctx context.Context, collection string, docs []domdoc.Document) []dombatch.Result
	Delete(ctx context.Context, collection string, keys []string) []dombatch.Result
}

// Searcher validates and runs search requests.
type Searcher interface {
	Request(p request.Params) (*request.Request, error)
	Search(ctx context.Context, collection string, req *request.Request) (result.Result, error)
}

// Lifecycle runs index migrations.
type Lifecycle interface {
	Resolve(ctx context.Context, alias string) (domcol.Target, error)
	Rebuild(ctx context.Context, req lifecycle.RebuildRequest) (lifecycle.RebuildResult, error)
}

// Jobs reads embedding job status.
type Jobs interface {
	Status(ctx context.Context, id string) (job.Status, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
