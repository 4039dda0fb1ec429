package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/domain/collection"
	"github.com/kailas-cloud/docsearch/internal/domain/collection/field"
	"github.com/kailas-cloud/docsearch/internal/domain/search/request"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
	"github.com/kailas-cloud/docsearch/internal/domain/search/sortspec"
	"github.com/kailas-cloud/docsearch/internal/engine"
	"github.com/kailas-cloud/docsearch/internal/logger"
	"github.com/kailas-cloud/docsearch/internal/metrics"
)

// Service compiles declarative search requests, executes them and reshapes the hits.
type Service struct {
	repo   Repository
	limits request.Limits
}

// New creates a search service.
func New(repo Repository, limits request.Limits) *Service {
	return &Service{repo: repo, limits: limits}
}

// Request validates raw parameters against the configured limits.
func (s *Service) Request(p request.Params) (*request.Request, error) {
	req, err := request.New(p, s.limits)
	if err != nil {
		return nil, domain.NewQueryError(err.Error())
	}
	return &req, nil
}

// Search runs req against collection.
func (s *Service) Search(ctx context.Context, collectionName string, req *request.Request) (result.Result, error) {
	start := time.Now()
	res, err := s.search(ctx, collectionName, req)

	metrics.SearchDuration.WithLabelValues(collectionName).Observe(time.Since(start).Seconds())
	metrics.SearchRequestsTotal.WithLabelValues(collectionName, outcome(err)).Inc()
	return res, err
}

func (s *Service) search(ctx context.Context, collectionName string, req *request.Request) (result.Result, error) {
	if err := collection.ValidateName(collectionName); err != nil {
		return result.Result{}, domain.NewQueryError(err.Error())
	}

	facets, err := resolveFacets(req, func() (field.Catalog, error) {
		return s.repo.Fields(ctx, collectionName)
	})
	if err != nil {
		return result.Result{}, fmt.Errorf("resolve facets: %w", err)
	}

	if suspects := sortspec.SuspectDirections(req.Sort()); len(suspects) > 0 {
		logger.FromContext(ctx).Debug("Sort tokens parsed as field names look like directions",
			zap.String("collection", collectionName),
			zap.Strings("fields", suspects),
		)
	}

	c := compile(req, facets)
	res, err := s.execute(ctx, collectionName, c)
	if err != nil {
		return result.Result{}, fmt.Errorf("search %s: %w", collectionName, err)
	}
	return project(res, c), nil
}

// execute runs the query once. When the engine rejects a sort on a text field
// without fielddata, the sort is pointed at keyword subfields and the query is
// retried exactly once. Every other failure is returned unchanged.
func (s *Service) execute(ctx context.Context, collectionName string, c compiled) (*engine.SearchResponse, error) {
	res, err := s.repo.Execute(ctx, collectionName, c.body)
	if err == nil {
		return res, nil
	}
	if !engine.IsFielddataDisabled(err) {
		return nil, err
	}
	fixed, ok := c.withKeywordSort()
	if !ok {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info("Retrying search with keyword sort fields",
		zap.String("collection", collectionName),
		zap.Any("sort", fixed.body["sort"]),
	)

	res, retryErr := s.repo.Execute(ctx, collectionName, fixed.body)
	if retryErr != nil {
		metrics.SortRepairsTotal.WithLabelValues(collectionName, "failed").Inc()
		return nil, retryErr
	}
	metrics.SortRepairsTotal.WithLabelValues(collectionName, "repaired").Inc()
	return res, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidRequest):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}
