// Package batch implements bulk document upsert and delete with per-item results.
package batch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/domain"
	dombatch "github.com/kailas-cloud/docsearch/internal/domain/batch"
	"github.com/kailas-cloud/docsearch/internal/domain/collection"
	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/job"
	"github.com/kailas-cloud/docsearch/internal/logger"
)

// DefaultMaxBatchSize caps the items of one bulk request.
const DefaultMaxBatchSize = 500

// Service runs bulk operations. Results line up with the input by position.
type Service struct {
	bulk         BulkWriter
	del          DocumentDeleter
	cache        Invalidator
	enqueuer     Enqueuer
	maxBatchSize int
}

// New creates a bulk service.
func New(bulk BulkWriter, del DocumentDeleter) *Service {
	return &Service{bulk: bulk, del: del, maxBatchSize: DefaultMaxBatchSize}
}

// WithCache invalidates cached documents after upserts.
func (s *Service) WithCache(c Invalidator) *Service {
	s.cache = c
	return s
}

// WithEnqueuer enables embedding jobs for upserted documents.
func (s *Service) WithEnqueuer(e Enqueuer) *Service {
	s.enqueuer = e
	return s
}

// WithMaxBatchSize overrides the item cap.
func (s *Service) WithMaxBatchSize(n int) *Service {
	if n > 0 {
		s.maxBatchSize = n
	}
	return s
}

// Upsert indexes docs in a single engine request. Items without a key are
// rejected individually; the rest succeed or fail with the engine's reason.
func (s *Service) Upsert(ctx context.Context, collectionName string, docs []domdoc.Document) []dombatch.Result {
	results := make([]dombatch.Result, len(docs))
	keyOf := func(i int) string {
		k, _ := docs[i].Key()
		return k
	}

	if err := s.check(collectionName, len(docs)); err != nil {
		for i := range docs {
			results[i] = dombatch.NewError(keyOf(i), err)
		}
		return results
	}

	valid := make([]domdoc.Document, 0, len(docs))
	validIdx := make([]int, 0, len(docs))
	for i, d := range docs {
		if _, ok := d.Key(); !ok {
			results[i] = dombatch.NewError("", domain.Invalidf("document %d requires %q or %q", i, domdoc.FieldURN, domdoc.FieldID))
			continue
		}
		valid = append(valid, d)
		validIdx = append(validIdx, i)
	}
	if len(valid) == 0 {
		return results
	}

	rejected, err := s.bulk.BulkWrite(ctx, collectionName, valid)
	if err != nil {
		for _, i := range validIdx {
			results[i] = dombatch.NewError(keyOf(i), fmt.Errorf("bulk upsert: %w", err))
		}
		return results
	}

	for _, i := range validIdx {
		key := keyOf(i)
		if reason, ok := rejected[key]; ok {
			results[i] = dombatch.NewError(key, domain.NewQueryError(reason))
			continue
		}
		s.written(ctx, collectionName, key, docs[i])
		results[i] = dombatch.NewOK(key)
	}
	return results
}

// Delete removes keys one by one.
func (s *Service) Delete(ctx context.Context, collectionName string, keys []string) []dombatch.Result {
	results := make([]dombatch.Result, len(keys))

	if err := s.check(collectionName, len(keys)); err != nil {
		for i, key := range keys {
			results[i] = dombatch.NewError(key, err)
		}
		return results
	}

	for i, key := range keys {
		if err := s.del.Delete(ctx, collectionName, key); err != nil {
			results[i] = dombatch.NewError(key, fmt.Errorf("delete: %w", err))
			continue
		}
		results[i] = dombatch.NewOK(key)
	}
	return results
}

func (s *Service) check(collectionName string, n int) error {
	if err := collection.ValidateName(collectionName); err != nil {
		return domain.NewQueryError(err.Error())
	}
	if n > s.maxBatchSize {
		return domain.Invalidf("batch size %d exceeds %d", n, s.maxBatchSize)
	}
	return nil
}

func (s *Service) written(ctx context.Context, collectionName, key string, doc domdoc.Document) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, collectionName, key)
	}
	text := doc.EmbeddingText()
	if s.enqueuer == nil || text == "" {
		return
	}
	if _, err := s.enqueuer.Enqueue(ctx, job.Job{
		Type:      job.TypeEntityEmbedding,
		Entity:    collectionName,
		URN:       key,
		IndexName: collectionName,
		Text:      text,
	}); err != nil {
		logger.FromContext(ctx).Warn("Failed to enqueue embedding job",
			zap.String("collection", collectionName),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
