package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/domain/collection"
	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/document/patch"
	"github.com/kailas-cloud/docsearch/internal/domain/job"
	"github.com/kailas-cloud/docsearch/internal/logger"
)

// Service is the thin document API: keyed reads and writes, list/fetch of
// live documents, and AI enhancement.
type Service struct {
	repo            Repository
	cache           Cache
	enqueuer        Enqueuer
	defaultPageSize int
	maxPageSize     int
	now             func() time.Time
}

// New creates a document service.
func New(repo Repository) *Service {
	return &Service{
		repo:            repo,
		defaultPageSize: 20,
		maxPageSize:     100,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithCache puts a read-through cache in front of Get.
func (s *Service) WithCache(c Cache) *Service {
	s.cache = c
	return s
}

// WithEnqueuer enables embedding jobs after writes that change embeddable text.
func (s *Service) WithEnqueuer(e Enqueuer) *Service {
	s.enqueuer = e
	return s
}

// WithPagination configures page size limits.
func (s *Service) WithPagination(defaultPageSize, maxPageSize int) *Service {
	if defaultPageSize > 0 {
		s.defaultPageSize = defaultPageSize
	}
	if maxPageSize > 0 {
		s.maxPageSize = maxPageSize
	}
	return s
}

// Get returns the document stored under key. A missing document yields
// domain.ErrDocumentNotFound.
func (s *Service) Get(ctx context.Context, collectionName, key string) (domdoc.Document, error) {
	if err := validate(collectionName, key); err != nil {
		return nil, err
	}

	load := func(ctx context.Context) (domdoc.Document, error) {
		return s.repo.Get(ctx, collectionName, key)
	}
	var (
		doc domdoc.Document
		err error
	)
	if s.cache != nil {
		doc, err = s.cache.GetOrLoad(ctx, collectionName, key, load)
	} else {
		doc, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Index upserts doc under its urn, falling back to id, and returns the key.
func (s *Service) Index(ctx context.Context, collectionName string, doc domdoc.Document) (string, error) {
	key, ok := doc.Key()
	if !ok {
		return "", domain.Invalidf("document requires %q or %q", domdoc.FieldURN, domdoc.FieldID)
	}
	if err := validate(collectionName, key); err != nil {
		return "", err
	}

	if err := s.repo.Index(ctx, collectionName, key, doc); err != nil {
		return "", fmt.Errorf("index document: %w", err)
	}
	s.invalidate(ctx, collectionName, key)
	s.enqueueEmbedding(ctx, collectionName, key, doc.EmbeddingText())
	return key, nil
}

// Update merges partial over the stored document; partial wins.
// It reports whether anything was written: partials carrying only urn and
// updated_at, and updates of missing documents, are no-ops.
func (s *Service) Update(ctx context.Context, collectionName, key string, partial domdoc.Document) (bool, error) {
	if key == "" {
		key, _ = partial.Key()
	}
	if err := validate(collectionName, key); err != nil {
		return false, err
	}
	if len(partial) == 0 || partial.IsSystemOnly() {
		return false, nil
	}

	existing, err := s.repo.Get(ctx, collectionName, key)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		logger.FromContext(ctx).Debug("Skipping update of missing document",
			zap.String("collection", collectionName),
			zap.String("key", key),
		)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get document for update: %w", err)
	}

	merged := patch.Apply(existing, partial)
	if err := s.repo.Update(ctx, collectionName, key, merged); err != nil {
		return false, fmt.Errorf("update document: %w", err)
	}
	s.invalidate(ctx, collectionName, key)

	if domdoc.TouchesEmbeddingText(keys(partial)) {
		s.enqueueEmbedding(ctx, collectionName, key, merged.EmbeddingText())
	}
	return true, nil
}

// Enhance applies AI-generated fields to key and appends event to its
// enhancement log. Every applied field name is recorded once in
// ai_generated_fields and updated_at is stamped.
func (s *Service) Enhance(
	ctx context.Context, collectionName, key string, fields, event map[string]any,
) error {
	if err := validate(collectionName, key); err != nil {
		return err
	}
	if len(fields) == 0 {
		return domain.Invalidf("enhance requires at least one field")
	}
	if event == nil {
		event = map[string]any{}
	}

	updatedAt := s.now().Format(time.RFC3339)
	if err := s.repo.Enhance(ctx, collectionName, key, fields, event, updatedAt); err != nil {
		return fmt.Errorf("enhance document: %w", err)
	}
	s.invalidate(ctx, collectionName, key)
	return nil
}

// Delete removes key.
func (s *Service) Delete(ctx context.Context, collectionName, key string) error {
	if err := validate(collectionName, key); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, collectionName, key); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	s.invalidate(ctx, collectionName, key)
	return nil
}

// DeleteByQuery removes every document matching query and returns the count.
// Cached copies of the removed documents expire by TTL.
func (s *Service) DeleteByQuery(ctx context.Context, collectionName string, query map[string]any) (int64, error) {
	if err := collection.ValidateName(collectionName); err != nil {
		return 0, domain.NewQueryError(err.Error())
	}
	if len(query) == 0 {
		return 0, domain.Invalidf("delete_by_query requires a query")
	}
	n, err := s.repo.DeleteByQuery(ctx, collectionName, query)
	if err != nil {
		return 0, fmt.Errorf("delete documents by query: %w", err)
	}
	return n, nil
}

// List returns keys of documents not marked deleted.
func (s *Service) List(ctx context.Context, collectionName string, limit, offset int) ([]string, error) {
	limit, offset, err := s.page(collectionName, limit, offset)
	if err != nil {
		return nil, err
	}
	ids, err := s.repo.List(ctx, collectionName, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return ids, nil
}

// Fetch returns documents not marked deleted.
func (s *Service) Fetch(ctx context.Context, collectionName string, limit, offset int) ([]domdoc.Document, error) {
	limit, offset, err := s.page(collectionName, limit, offset)
	if err != nil {
		return nil, err
	}
	docs, err := s.repo.Fetch(ctx, collectionName, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fetch documents: %w", err)
	}
	return docs, nil
}

func (s *Service) page(collectionName string, limit, offset int) (int, int, error) {
	if err := collection.ValidateName(collectionName); err != nil {
		return 0, 0, domain.NewQueryError(err.Error())
	}
	if offset < 0 {
		return 0, 0, domain.Invalidf("offset must not be negative")
	}
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	return limit, offset, nil
}

func (s *Service) invalidate(ctx context.Context, collectionName, key string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, collectionName, key)
	}
}

// enqueueEmbedding schedules an entity embedding job. Failures are logged
// and never fail the write.
func (s *Service) enqueueEmbedding(ctx context.Context, collectionName, key, text string) {
	if s.enqueuer == nil || text == "" {
		return
	}
	id, err := s.enqueuer.Enqueue(ctx, job.Job{
		Type:      job.TypeEntityEmbedding,
		Entity:    collectionName,
		URN:       key,
		IndexName: collectionName,
		Text:      text,
	})
	log := logger.FromContext(ctx)
	if err != nil {
		log.Warn("Failed to enqueue embedding job",
			zap.String("collection", collectionName),
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}
	log.Debug("Enqueued embedding job",
		zap.String("collection", collectionName),
		zap.String("key", key),
		zap.String("job_id", id),
	)
}

func validate(collectionName, key string) error {
	if err := collection.ValidateName(collectionName); err != nil {
		return domain.NewQueryError(err.Error())
	}
	if key == "" {
		return domain.Invalidf("document key is required")
	}
	return nil
}

func keys(d domdoc.Document) []string {
	out := make([]string, 0, len(d))
	for k := range d {
		out = append(out, k)
	}
	return out
}
