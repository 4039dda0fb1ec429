package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/domain"
	dombatch "github.com/kailas-cloud/docsearch/internal/domain/batch"
	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/search/request"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
	"github.com/kailas-cloud/docsearch/internal/engine"
	"github.com/kailas-cloud/docsearch/internal/logger"
	"github.com/kailas-cloud/docsearch/internal/metrics"
	healthuc "github.com/kailas-cloud/docsearch/internal/usecase/health"
	"github.com/kailas-cloud/docsearch/internal/usecase/lifecycle"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements ServerInterface.
type Server struct {
	documents     Documents
	bulk          Bulk
	search        Searcher
	lifecycle     Lifecycle
	jobs          Jobs
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
	rebuilds      sync.WaitGroup
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server. jobs may be nil when no queue is configured.
func NewServer(
	documents Documents,
	bulk Bulk,
	search Searcher,
	lc Lifecycle,
	jobs Jobs,
	health HealthChecker,
	log *zap.Logger,
) *Server {
	s := &Server{
		documents: documents,
		bulk:      bulk,
		search:    search,
		lifecycle: lc,
		jobs:      jobs,
		health:    health,
		logger:    log,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, ErrorCodeDocumentNotFound),
		sentinelHandler(domain.ErrJobNotFound, http.StatusNotFound, ErrorCodeJobNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeBadRequest),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, ErrorCodeAlreadyExists),
		sentinelHandler(domain.ErrTimeout, http.StatusGatewayTimeout, ErrorCodeTimeout),
		sentinelHandler(domain.ErrUnavailable, http.StatusServiceUnavailable, ErrorCodeUnavailable),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProvider),
	}
	return s
}

// ListDocuments handles GET /collections/{collection}/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request, collection CollectionName, params PageParams) {
	keys, err := s.documents.List(r.Context(), collection, derefInt(params.Limit), derefInt(params.Offset))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, ListResponse{Items: keys})
}

// FetchDocuments handles GET /collections/{collection}/fetch.
func (s *Server) FetchDocuments(w http.ResponseWriter, r *http.Request, collection CollectionName, params PageParams) {
	docs, err := s.documents.Fetch(r.Context(), collection, derefInt(params.Limit), derefInt(params.Offset))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	items := make([]map[string]any, len(docs))
	for i, d := range docs {
		items[i] = d
	}
	writeJSON(w, http.StatusOK, FetchResponse{Items: items})
}

// DeleteByQuery handles POST /collections/{collection}/documents/_delete_by_query.
func (s *Server) DeleteByQuery(w http.ResponseWriter, r *http.Request, collection CollectionName) {
	var req DeleteByQueryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := s.documents.DeleteByQuery(r.Context(), collection, req.Query)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteByQueryResponse{Deleted: n})
}

// BulkUpsert handles POST /collections/{collection}/documents/_bulk.
// Item failures are reported per item with a 200 response.
func (s *Server) BulkUpsert(w http.ResponseWriter, r *http.Request, collection CollectionName) {
	var req BulkUpsertRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "documents must not be empty")
		return
	}
	docs := make([]domdoc.Document, len(req.Documents))
	for i, d := range req.Documents {
		docs[i] = d
	}
	writeJSON(w, http.StatusOK, s.bulkResponse(r, s.bulk.Upsert(r.Context(), collection, docs)))
}

// BulkDelete handles POST /collections/{collection}/documents/_bulk_delete.
func (s *Server) BulkDelete(w http.ResponseWriter, r *http.Request, collection CollectionName) {
	var req BulkDeleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Keys) == 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "keys must not be empty")
		return
	}
	writeJSON(w, http.StatusOK, s.bulkResponse(r, s.bulk.Delete(r.Context(), collection, req.Keys)))
}

func (s *Server) bulkResponse(r *http.Request, results []dombatch.Result) BulkResponse {
	sum := dombatch.Summarize(results)
	resp := BulkResponse{Items: make([]BulkItem, len(results)), Succeeded: sum.OK, Failed: sum.Failed}
	for i, res := range results {
		item := BulkItem{Key: res.Key(), Status: string(res.Status())}
		if err := res.Err(); err != nil {
			code := errorCode(err)
			if code == ErrorCodeInternalError {
				logger.FromContextOr(r.Context(), s.logger).Error("bulk item failed",
					zap.String("key", res.Key()), zap.Error(err))
			}
			item.Error = &ErrorResponse{Code: code, Message: clientMessage(err)}
		}
		resp.Items[i] = item
	}
	return resp
}

// GetDocument handles GET /collections/{collection}/documents/{key}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request, collection CollectionName, key DocumentKey) {
	doc, err := s.documents.Get(r.Context(), collection, key)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// IndexDocument handles PUT /collections/{collection}/documents/{key}.
// The path key fills urn when the body carries neither urn nor id; a
// conflicting body key is rejected.
func (s *Server) IndexDocument(w http.ResponseWriter, r *http.Request, collection CollectionName, key DocumentKey) {
	var doc domdoc.Document
	if !decodeBody(w, r, &doc) {
		return
	}
	if doc == nil {
		doc = domdoc.Document{}
	}
	if bodyKey, ok := doc.Key(); !ok {
		doc[domdoc.FieldURN] = key
	} else if bodyKey != key {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest,
			fmt.Sprintf("document key %q does not match path key %q", bodyKey, key))
		return
	}

	stored, err := s.documents.Index(r.Context(), collection, doc)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, IndexResponse{Key: stored})
}

// UpdateDocument handles PATCH /collections/{collection}/documents/{key}.
func (s *Server) UpdateDocument(w http.ResponseWriter, r *http.Request, collection CollectionName, key DocumentKey) {
	var partial domdoc.Document
	if !decodeBody(w, r, &partial) {
		return
	}
	updated, err := s.documents.Update(r.Context(), collection, key, partial)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, IndexResponse{Key: key, Updated: &updated})
}

// DeleteDocument handles DELETE /collections/{collection}/documents/{key}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request, collection CollectionName, key DocumentKey) {
	if err := s.documents.Delete(r.Context(), collection, key); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EnhanceDocument handles PATCH /collections/{collection}/documents/{key}/enhance.
func (s *Server) EnhanceDocument(w http.ResponseWriter, r *http.Request, collection CollectionName, key DocumentKey) {
	var req EnhanceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.documents.Enhance(r.Context(), collection, key, req.Fields, req.Event); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	updated := true
	writeJSON(w, http.StatusOK, IndexResponse{Key: key, Updated: &updated})
}

// SearchDocuments handles POST /collections/{collection}/search.
func (s *Server) SearchDocuments(w http.ResponseWriter, r *http.Request, collection CollectionName) {
	var body SearchRequest
	if !decodeBody(w, r, &body) {
		return
	}
	s.runSearch(w, r, collection, request.Params{
		Query:            body.Q,
		Filters:          body.Fq,
		Fields:           body.Fl,
		Sort:             body.Sort,
		FacetFields:      body.Fields,
		Limit:            derefInt(body.Limit),
		Offset:           derefInt(body.Offset),
		FacetLimit:       derefInt(body.FacetLimit),
		Highlight:        body.Highlight,
		HighlightFields:  body.HighlightFields,
		HighlightPreTag:  body.HighlightPreTag,
		HighlightPostTag: body.HighlightPostTag,
	})
}

// SearchDocumentsQuery handles GET /collections/{collection}/search.
func (s *Server) SearchDocumentsQuery(
	w http.ResponseWriter, r *http.Request, collection CollectionName, params SearchParams,
) {
	s.runSearch(w, r, collection, request.Params{
		Query:            derefString(params.Q),
		Filters:          derefStrings(params.Fq),
		Fields:           derefStrings(params.Fl),
		Sort:             derefString(params.Sort),
		FacetFields:      derefStrings(params.Fields),
		Limit:            derefInt(params.Limit),
		Offset:           derefInt(params.Offset),
		FacetLimit:       derefInt(params.FacetLimit),
		Highlight:        params.Highlight != nil && *params.Highlight,
		HighlightFields:  derefStrings(params.HighlightFields),
		HighlightPreTag:  derefString(params.HighlightPreTag),
		HighlightPostTag: derefString(params.HighlightPostTag),
	})
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, collection string, p request.Params) {
	req, err := s.search.Request(p)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	res, err := s.search.Search(r.Context(), collection, req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResultToResponse(&res))
}

// RebuildCollection handles POST /collections/{collection}/rebuild.
// The mapping and settings come from the collection catalog. The migration
// runs detached from the request, so a dropped connection never aborts a
// reindex halfway. A synchronous call can still outlive http.write_timeout;
// long migrations should use async or docsearchctl rebuild.
func (s *Server) RebuildCollection(w http.ResponseWriter, r *http.Request, collection CollectionName) {
	var body RebuildRequest
	if !decodeBody(w, r, &body) {
		return
	}
	req := lifecycle.RebuildRequest{
		Alias:     collection,
		NewIndex:  body.NewIndex,
		DeleteOld: body.DeleteOld,
	}
	ctx := context.WithoutCancel(r.Context())

	if body.Async {
		// Rebuild logs its own outcome and records metrics.
		s.rebuilds.Go(func() {
			_, _ = s.lifecycle.Rebuild(ctx, req)
		})
		writeJSON(w, http.StatusAccepted, RebuildAccepted{
			Collection: collection,
			NewIndex:   body.NewIndex,
			Status:     "accepted",
		})
		return
	}

	res, err := s.lifecycle.Rebuild(ctx, req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Wait blocks until background rebuilds finish or ctx is done.
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.rebuilds.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetCollectionAlias handles GET /collections/{collection}/alias.
func (s *Server) GetCollectionAlias(w http.ResponseWriter, r *http.Request, collection CollectionName) {
	target, err := s.lifecycle.Resolve(r.Context(), collection)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AliasResponse{
		Collection: collection,
		State:      target.State.String(),
		Index:      target.Index,
	})
}

// GetJob handles GET /jobs/{id}.
func (s *Server) GetJob(w http.ResponseWriter, r *http.Request, id JobID) {
	if s.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, ErrorCodeUnavailable, "job queue is not configured")
		return
	}
	st, err := s.jobs.Status(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics.Handler().ServeHTTP(w, r)
}

func searchResultToResponse(res *result.Result) SearchResponse {
	hits := res.Hits()
	results := make([]map[string]any, len(hits))
	for i, h := range hits {
		results[i] = h
	}
	facets := make(map[string][]Facet, len(res.Facets()))
	for name, buckets := range res.Facets() {
		out := make([]Facet, len(buckets))
		for i, b := range buckets {
			out[i] = Facet{Value: b.Value, Count: b.Count}
		}
		facets[name] = out
	}
	return SearchResponse{Results: results, Facets: facets, Total: res.Total()}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// ParamErrorHandler renders parameter binding failures as 400 responses.
func ParamErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	writeError(w, http.StatusBadRequest, ErrorCodeInvalidParamFormat, err.Error())
}

// clientMessage returns what the client may see of err. Rejection reasons of
// invalid requests are user-facing; everything else is reduced to its sentinel.
func clientMessage(err error) string {
	var qe *domain.QueryError
	if errors.As(err, &qe) {
		return qe.Error()
	}
	if errors.Is(err, domain.ErrInvalidRequest) {
		var ee *engine.Error
		if errors.As(err, &ee) {
			reason := ee.Reason
			if len(ee.RootCauses) > 0 {
				reason = ee.RootCauses[0]
			}
			if reason != "" {
				return domain.NewQueryError(reason).Error()
			}
		}
	}

	sentinels := []error{
		domain.ErrDocumentNotFound,
		domain.ErrJobNotFound,
		domain.ErrNotFound,
		domain.ErrInvalidRequest,
		domain.ErrAlreadyExists,
		domain.ErrTimeout,
		domain.ErrUnavailable,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// errorCode returns the ErrorCode for err, internal_error when no sentinel matches.
func errorCode(err error) ErrorCode {
	codes := []struct {
		sentinel error
		code     ErrorCode
	}{
		{domain.ErrDocumentNotFound, ErrorCodeDocumentNotFound},
		{domain.ErrJobNotFound, ErrorCodeJobNotFound},
		{domain.ErrNotFound, ErrorCodeNotFound},
		{domain.ErrInvalidRequest, ErrorCodeBadRequest},
		{domain.ErrAlreadyExists, ErrorCodeAlreadyExists},
		{domain.ErrTimeout, ErrorCodeTimeout},
		{domain.ErrUnavailable, ErrorCodeUnavailable},
		{domain.ErrEmbeddingProviderError, ErrorCodeEmbeddingProvider},
	}
	for _, c := range codes {
		if errors.Is(err, c.sentinel) {
			return c.code
		}
	}
	return ErrorCodeInternalError
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := clientMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func derefStrings(p *[]string) []string {
	if p == nil {
		return nil
	}
	return *p
}
