package docsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	dombatch "github.com/kailas-cloud/docsearch/internal/domain/batch"
	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
)

// DocumentService manages documents within a single collection.
type DocumentService struct {
	collection string
	svc        documentUseCase
	bulk       bulkUseCase
	obs        *observer
}

// Get returns the document stored under key.
func (s *DocumentService) Get(ctx context.Context, key string) (doc Document, err error) {
	defer s.observe("document.get", time.Now(), &err)

	d, err := s.svc.Get(ctx, s.collection, key)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return Document(d), nil
}

// Index upserts doc under its urn (or id) and returns that key.
func (s *DocumentService) Index(ctx context.Context, doc Document) (key string, err error) {
	defer s.observe("document.index", time.Now(), &err)

	key, err = s.svc.Index(ctx, s.collection, domdoc.Document(doc))
	if err != nil {
		return "", fmt.Errorf("index document: %w", err)
	}
	return key, nil
}

// Update merges partial into the stored document. It reports false when
// nothing was written: the document is missing or partial only touches
// urn and updated_at.
func (s *DocumentService) Update(ctx context.Context, key string, partial Document) (updated bool, err error) {
	defer s.observe("document.update", time.Now(), &err)

	updated, err = s.svc.Update(ctx, s.collection, key, domdoc.Document(partial))
	if err != nil {
		return false, fmt.Errorf("update document: %w", err)
	}
	return updated, nil
}

// Enhance applies AI generated fields and appends event to the document's
// enhancement history.
func (s *DocumentService) Enhance(ctx context.Context, key string, fields, event map[string]any) (err error) {
	defer s.observe("document.enhance", time.Now(), &err)

	if err = s.svc.Enhance(ctx, s.collection, key, fields, event); err != nil {
		return fmt.Errorf("enhance document: %w", err)
	}
	return nil
}

// Delete removes a document by key.
func (s *DocumentService) Delete(ctx context.Context, key string) (err error) {
	defer s.observe("document.delete", time.Now(), &err)

	if err = s.svc.Delete(ctx, s.collection, key); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// DeleteByQuery removes every document matching an engine query and returns the count.
func (s *DocumentService) DeleteByQuery(ctx context.Context, query map[string]any) (deleted int64, err error) {
	defer s.observe("document.delete_by_query", time.Now(), &err)

	deleted, err = s.svc.DeleteByQuery(ctx, s.collection, query)
	if err != nil {
		return 0, fmt.Errorf("delete by query: %w", err)
	}
	return deleted, nil
}

// List returns a page of document keys, skipping soft-deleted documents.
func (s *DocumentService) List(ctx context.Context, limit, offset int) (keys []string, err error) {
	defer s.observe("document.list", time.Now(), &err)

	keys, err = s.svc.List(ctx, s.collection, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return keys, nil
}

// Fetch returns a page of documents, skipping soft-deleted documents.
func (s *DocumentService) Fetch(ctx context.Context, limit, offset int) (docs []Document, err error) {
	defer s.observe("document.fetch", time.Now(), &err)

	found, err := s.svc.Fetch(ctx, s.collection, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fetch documents: %w", err)
	}
	docs = make([]Document, len(found))
	for i, d := range found {
		docs[i] = Document(d)
	}
	return docs, nil
}

// BulkIndex upserts docs in one engine request. Every item gets a BulkItem;
// err joins the item failures so errors.Is works against any of them.
func (s *DocumentService) BulkIndex(ctx context.Context, docs []Document) (items []BulkItem, err error) {
	defer s.observe("document.bulk_index", time.Now(), &err)

	in := make([]domdoc.Document, len(docs))
	for i, d := range docs {
		in[i] = domdoc.Document(d)
	}
	return bulkItems("bulk index", s.bulk.Upsert(ctx, s.collection, in))
}

// BulkDelete removes keys and reports each outcome.
func (s *DocumentService) BulkDelete(ctx context.Context, keys []string) (items []BulkItem, err error) {
	defer s.observe("document.bulk_delete", time.Now(), &err)

	return bulkItems("bulk delete", s.bulk.Delete(ctx, s.collection, keys))
}

func bulkItems(op string, results []dombatch.Result) ([]BulkItem, error) {
	items := make([]BulkItem, len(results))
	var errs []error
	for i, r := range results {
		items[i] = BulkItem{Key: r.Key(), Err: r.Err()}
		if r.Err() != nil {
			errs = append(errs, r.Err())
		}
	}
	if len(errs) > 0 {
		return items, fmt.Errorf("%s: %d of %d items failed: %w", op, len(errs), len(results), errors.Join(errs...))
	}
	return items, nil
}

func (s *DocumentService) observe(op string, start time.Time, err *error) {
	s.obs.observe(op, start, *err, "collection", s.collection)
}
