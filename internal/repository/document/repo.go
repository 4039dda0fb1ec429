package document

import (
	"context"
	"fmt"

	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/engine"
	"github.com/kailas-cloud/docsearch/internal/repository/errmap"
)

// enhanceScript appends the event, applies fields, records each applied key
// once in ai_generated_fields and stamps updated_at in a single engine-side update.
const enhanceScript = `if (ctx._source.enhancements == null) {
  ctx._source.enhancements = [];
}
ctx._source.enhancements.add(params.event);
if (ctx._source.ai_generated_fields == null) {
  ctx._source.ai_generated_fields = [];
}
for (entry in params.fields.entrySet()) {
  ctx._source[entry.getKey()] = entry.getValue();
  if (!ctx._source.ai_generated_fields.contains(entry.getKey())) {
    ctx._source.ai_generated_fields.add(entry.getKey());
  }
}
ctx._source.updated_at = params.updated_at;`

// store is the consumer interface for documents (ISP).
type store interface {
	GetDocument(ctx context.Context, index, id string) (map[string]any, error)
	IndexDocument(ctx context.Context, index, id string, doc map[string]any, refresh engine.Refresh) error
	UpdateDocument(ctx context.Context, index, id string, upd engine.DocumentUpdate, refresh engine.Refresh) error
	DeleteDocument(ctx context.Context, index, id string, refresh engine.Refresh) error
	DeleteByQuery(ctx context.Context, index string, query map[string]any) (int64, error)
	BulkIndex(ctx context.Context, index string, docs []engine.BulkDocument, refresh engine.Refresh) (*engine.BulkResult, error)
	Search(ctx context.Context, index string, body map[string]any) (*engine.SearchResponse, error)
}

// Repo implements usecase/document.Repository on top of the search engine.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Get returns the document stored under key.
func (r *Repo) Get(ctx context.Context, collection, key string) (domdoc.Document, error) {
	src, err := r.store.GetDocument(ctx, collection, key)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, key, errmap.FromEngine(err))
	}
	return domdoc.Document(src), nil
}

// Index writes doc under key, replacing any previous version.
func (r *Repo) Index(ctx context.Context, collection, key string, doc domdoc.Document) error {
	if err := r.store.IndexDocument(ctx, collection, key, doc, engine.RefreshWaitFor); err != nil {
		return fmt.Errorf("index %s/%s: %w", collection, key, errmap.FromEngine(err))
	}
	return nil
}

// Update writes doc as a partial update of key.
func (r *Repo) Update(ctx context.Context, collection, key string, doc domdoc.Document) error {
	upd := engine.DocumentUpdate{Doc: doc}
	if err := r.store.UpdateDocument(ctx, collection, key, upd, engine.RefreshWaitFor); err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, key, errmap.FromEngine(err))
	}
	return nil
}

// Enhance applies AI-generated fields and appends event to the enhancement log.
func (r *Repo) Enhance(
	ctx context.Context, collection, key string,
	fields map[string]any, event map[string]any, updatedAt string,
) error {
	upd := engine.DocumentUpdate{Script: &engine.Script{
		Source: enhanceScript,
		Lang:   "painless",
		Params: map[string]any{
			"event":      event,
			"fields":     fields,
			"updated_at": updatedAt,
		},
	}}
	if err := r.store.UpdateDocument(ctx, collection, key, upd, engine.RefreshWaitFor); err != nil {
		return fmt.Errorf("enhance %s/%s: %w", collection, key, errmap.FromEngine(err))
	}
	return nil
}

// Delete removes key.
func (r *Repo) Delete(ctx context.Context, collection, key string) error {
	if err := r.store.DeleteDocument(ctx, collection, key, engine.RefreshWaitFor); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, key, errmap.FromEngine(err))
	}
	return nil
}

// DeleteByQuery removes every document matching query and returns the count.
func (r *Repo) DeleteByQuery(ctx context.Context, collection string, query map[string]any) (int64, error) {
	n, err := r.store.DeleteByQuery(ctx, collection, query)
	if err != nil {
		return 0, fmt.Errorf("delete by query %s: %w", collection, errmap.FromEngine(err))
	}
	return n, nil
}

// BulkIndex writes docs keyed by their urn (or id) and returns how many were indexed.
func (r *Repo) BulkIndex(ctx context.Context, collection string, docs []domdoc.Document) (int, error) {
	items := make([]engine.BulkDocument, 0, len(docs))
	for i, d := range docs {
		key, ok := d.Key()
		if !ok {
			return 0, fmt.Errorf("bulk index %s: document %d has no urn or id", collection, i)
		}
		items = append(items, engine.BulkDocument{ID: key, Source: d})
	}
	res, err := r.store.BulkIndex(ctx, collection, items, engine.RefreshWaitFor)
	if err != nil {
		indexed := 0
		if res != nil {
			indexed = res.Indexed
		}
		return indexed, fmt.Errorf("bulk index %s: %w", collection, errmap.FromEngine(err))
	}
	return res.Indexed, nil
}

// BulkWrite indexes docs in one request and returns the engine's rejection
// reason per key. A request-level failure returns an error instead.
func (r *Repo) BulkWrite(ctx context.Context, collection string, docs []domdoc.Document) (map[string]string, error) {
	items := make([]engine.BulkDocument, 0, len(docs))
	for i, d := range docs {
		key, ok := d.Key()
		if !ok {
			return nil, fmt.Errorf("bulk write %s: document %d has no urn or id", collection, i)
		}
		items = append(items, engine.BulkDocument{ID: key, Source: d})
	}
	res, err := r.store.BulkIndex(ctx, collection, items, engine.RefreshWaitFor)
	if err != nil && (res == nil || len(res.Failed) == 0) {
		return nil, fmt.Errorf("bulk write %s: %w", collection, errmap.FromEngine(err))
	}
	rejected := map[string]string{}
	if res != nil {
		for _, f := range res.Failed {
			rejected[f.ID] = f.Reason
		}
	}
	return rejected, nil
}

// List returns keys of documents not marked deleted.
func (r *Repo) List(ctx context.Context, collection string, limit, offset int) ([]string, error) {
	body := liveDocumentsQuery(limit, offset)
	body["_source"] = false
	res, err := r.store.Search(ctx, collection, body)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, errmap.FromEngine(err))
	}
	ids := make([]string, 0, len(res.Hits.Hits))
	for _, h := range res.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

// Fetch returns sources of documents not marked deleted.
func (r *Repo) Fetch(ctx context.Context, collection string, limit, offset int) ([]domdoc.Document, error) {
	res, err := r.store.Search(ctx, collection, liveDocumentsQuery(limit, offset))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", collection, errmap.FromEngine(err))
	}
	docs := make([]domdoc.Document, 0, len(res.Hits.Hits))
	for _, h := range res.Hits.Hits {
		docs = append(docs, domdoc.Document(h.Source))
	}
	return docs, nil
}

func liveDocumentsQuery(limit, offset int) map[string]any {
	return map[string]any{
		"from": offset,
		"size": limit,
		"query": map[string]any{
			"bool": map[string]any{
				"must_not": map[string]any{
					"term": map[string]any{domdoc.FieldStatus: domdoc.StatusDeleted},
				},
			},
		},
	}
}
