package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ErrorCode is the machine-readable error kind in ErrorResponse.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest         ErrorCode = "bad_request"
	ErrorCodeUnauthorized       ErrorCode = "unauthorized"
	ErrorCodeNotFound           ErrorCode = "not_found"
	ErrorCodeDocumentNotFound   ErrorCode = "document_not_found"
	ErrorCodeJobNotFound        ErrorCode = "job_not_found"
	ErrorCodeAlreadyExists      ErrorCode = "already_exists"
	ErrorCodeTimeout            ErrorCode = "timeout"
	ErrorCodeUnavailable        ErrorCode = "unavailable"
	ErrorCodeEmbeddingProvider  ErrorCode = "embedding_provider_error"
	ErrorCodeInternalError      ErrorCode = "internal_error"
	ErrorCodeInvalidParamFormat ErrorCode = "invalid_param_format"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// CollectionName is the {collection} path parameter.
type CollectionName = string

// DocumentKey is the {key} path parameter.
type DocumentKey = string

// JobID is the {id} path parameter.
type JobID = string

// SearchRequest is the JSON body of POST /collections/{collection}/search.
type SearchRequest struct {
	Q                string   `json:"q,omitempty"`
	Fq               []string `json:"fq,omitempty"`
	Fl               []string `json:"fl,omitempty"`
	Sort             string   `json:"sort,omitempty"`
	Fields           []string `json:"fields,omitempty"`
	Limit            *int     `json:"limit,omitempty"`
	Offset           *int     `json:"offset,omitempty"`
	FacetLimit       *int     `json:"facet_limit,omitempty"`
	Highlight        bool     `json:"highlight,omitempty"`
	HighlightFields  []string `json:"highlight_fields,omitempty"`
	HighlightPreTag  string   `json:"highlight_pre_tag,omitempty"`
	HighlightPostTag string   `json:"highlight_post_tag,omitempty"`
}

// SearchParams are the query parameters of GET /collections/{collection}/search.
type SearchParams struct {
	Q                *string   `form:"q,omitempty" json:"q,omitempty"`
	Fq               *[]string `form:"fq,omitempty" json:"fq,omitempty"`
	Fl               *[]string `form:"fl,omitempty" json:"fl,omitempty"`
	Sort             *string   `form:"sort,omitempty" json:"sort,omitempty"`
	Fields           *[]string `form:"fields,omitempty" json:"fields,omitempty"`
	Limit            *int      `form:"limit,omitempty" json:"limit,omitempty"`
	Offset           *int      `form:"offset,omitempty" json:"offset,omitempty"`
	FacetLimit       *int      `form:"facet_limit,omitempty" json:"facet_limit,omitempty"`
	Highlight        *bool     `form:"highlight,omitempty" json:"highlight,omitempty"`
	HighlightFields  *[]string `form:"highlight_fields,omitempty" json:"highlight_fields,omitempty"`
	HighlightPreTag  *string   `form:"highlight_pre_tag,omitempty" json:"highlight_pre_tag,omitempty"`
	HighlightPostTag *string   `form:"highlight_post_tag,omitempty" json:"highlight_post_tag,omitempty"`
}

// SearchResponse is the reshaped search result.
type SearchResponse struct {
	Results []map[string]any   `json:"results"`
	Facets  map[string][]Facet `json:"facets"`
	Total   int64              `json:"total"`
}

// Facet is one facet bucket.
type Facet struct {
	Value any   `json:"value"`
	Count int64 `json:"count"`
}

// PageParams are the query parameters of the list and fetch routes.
type PageParams struct {
	Limit  *int `form:"limit,omitempty" json:"limit,omitempty"`
	Offset *int `form:"offset,omitempty" json:"offset,omitempty"`
}

// ListResponse is the body of GET /collections/{collection}/documents.
type ListResponse struct {
	Items []string `json:"items"`
}

// FetchResponse is the body of GET /collections/{collection}/fetch.
type FetchResponse struct {
	Items []map[string]any `json:"items"`
}

// IndexResponse is the body returned after a document write.
type IndexResponse struct {
	Key     string `json:"key"`
	Updated *bool  `json:"updated,omitempty"`
}

// EnhanceRequest is the JSON body of PATCH .../{key}/enhance.
type EnhanceRequest struct {
	Fields map[string]any `json:"fields"`
	Event  map[string]any `json:"event,omitempty"`
}

// DeleteByQueryRequest is the JSON body of POST .../_delete_by_query.
type DeleteByQueryRequest struct {
	Query map[string]any `json:"query"`
}

// DeleteByQueryResponse reports how many documents were removed.
type DeleteByQueryResponse struct {
	Deleted int64 `json:"deleted"`
}

// BulkUpsertRequest is the JSON body of POST .../documents/_bulk.
type BulkUpsertRequest struct {
	Documents []map[string]any `json:"documents"`
}

// BulkDeleteRequest is the JSON body of POST .../documents/_bulk_delete.
type BulkDeleteRequest struct {
	Keys []string `json:"keys"`
}

// BulkItem is the outcome of one bulk item, in request order.
type BulkItem struct {
	Key    string         `json:"key,omitempty"`
	Status string         `json:"status"`
	Error  *ErrorResponse `json:"error,omitempty"`
}

// BulkResponse is the body of both bulk routes.
type BulkResponse struct {
	Items     []BulkItem `json:"items"`
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
}

// RebuildRequest is the JSON body of POST /collections/{collection}/rebuild.
// With Async set the server answers 202 at once and the migration finishes
// in the background; GET /collections/{collection}/alias shows when the
// alias has moved.
type RebuildRequest struct {
	NewIndex  string `json:"new_index"`
	DeleteOld bool   `json:"delete_old,omitempty"`
	Async     bool   `json:"async,omitempty"`
}

// RebuildAccepted is the 202 body of an async rebuild.
type RebuildAccepted struct {
	Collection string `json:"collection"`
	NewIndex   string `json:"new_index"`
	Status     string `json:"status"`
}

// AliasResponse describes what a collection name resolves to.
type AliasResponse struct {
	Collection string `json:"collection"`
	State      string `json:"state"`
	Index      string `json:"index,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /collections/{collection}/documents)
	ListDocuments(w http.ResponseWriter, r *http.Request, collection CollectionName, params PageParams)
	// (GET /collections/{collection}/fetch)
	FetchDocuments(w http.ResponseWriter, r *http.Request, collection CollectionName, params PageParams)
	// (POST /collections/{collection}/documents/_delete_by_query)
	DeleteByQuery(w http.ResponseWriter, r *http.Request, collection CollectionName)
	// (POST /collections/{collection}/documents/_bulk)
	BulkUpsert(w http.ResponseWriter, r *http.Request, collection CollectionName)
	// (POST /collections/{collection}/documents/_bulk_delete)
	BulkDelete(w http.ResponseWriter, r *http.Request, collection CollectionName)
	// (GET /collections/{collection}/documents/{key})
	GetDocument(w http.ResponseWriter, r *http.Request, collection CollectionName, key DocumentKey)
	// (PUT /collections/{collection}/documents/{key})
	IndexDocument(w http.ResponseWriter, r *http.Request, collection CollectionName, key DocumentKey)
	// (PATCH /collections/{collection}/documents/{key})
	UpdateDocument(w http.ResponseWriter, r *http.Request, collection CollectionName, key DocumentKey)
	// (DELETE /collections/{collection}/documents/{key})
	DeleteDocument(w http.ResponseWriter, r *http.Request, collection CollectionName, key DocumentKey)
	// (PATCH /collections/{collection}/documents/{key}/enhance)
	EnhanceDocument(w http.ResponseWriter, r *http.Request, collection CollectionName, key DocumentKey)
	// (POST /collections/{collection}/search)
	SearchDocuments(w http.ResponseWriter, r *http.Request, collection CollectionName)
	// (GET /collections/{collection}/search)
	SearchDocumentsQuery(w http.ResponseWriter, r *http.Request, collection CollectionName, params SearchParams)
	// (POST /collections/{collection}/rebuild)
	RebuildCollection(w http.ResponseWriter, r *http.Request, collection CollectionName)
	// (GET /collections/{collection}/alias)
	GetCollectionAlias(w http.ResponseWriter, r *http.Request, collection CollectionName)
	// (GET /jobs/{id})
	GetJob(w http.ResponseWriter, r *http.Request, id JobID)
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
}

// InvalidParamFormatError reports a parameter that could not be bound.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// ServerInterfaceWrapper binds path and query parameters before calling the handler.
type ServerInterfaceWrapper struct {
	Handler          ServerInterface
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *ServerInterfaceWrapper) collection(w http.ResponseWriter, r *http.Request) (CollectionName, bool) {
	var collection CollectionName
	err := runtime.BindStyledParameterWithOptions("simple", "collection", chi.URLParam(r, "collection"), &collection,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "collection", Err: err})
		return "", false
	}
	return collection, true
}

func (siw *ServerInterfaceWrapper) key(w http.ResponseWriter, r *http.Request) (DocumentKey, bool) {
	var key DocumentKey
	err := runtime.BindStyledParameterWithOptions("simple", "key", chi.URLParam(r, "key"), &key,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "key", Err: err})
		return "", false
	}
	return key, true
}

func (siw *ServerInterfaceWrapper) pageParams(w http.ResponseWriter, r *http.Request) (PageParams, bool) {
	var params PageParams
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &params.Limit); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "limit", Err: err})
		return params, false
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", query, &params.Offset); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "offset", Err: err})
		return params, false
	}
	return params, true
}

// ListDocuments operation middleware
func (siw *ServerInterfaceWrapper) ListDocuments(w http.ResponseWriter, r *http.Request) {
	collection, ok := siw.collection(w, r)
	if !ok {
		return
	}
	params, ok := siw.pageParams(w, r)
	if !ok {
		return
	}
	siw.Handler.ListDocuments(w, r, collection, params)
}

// FetchDocuments operation middleware
func (siw *ServerInterfaceWrapper) FetchDocuments(w http.ResponseWriter, r *http.Request) {
	collection, ok := siw.collection(w, r)
	if !ok {
		return
	}
	params, ok := siw.pageParams(w, r)
	if !ok {
		return
	}
	siw.Handler.FetchDocuments(w, r, collection, params)
}

// DeleteByQuery operation middleware
func (siw *ServerInterfaceWrapper) DeleteByQuery(w http.ResponseWriter, r *http.Request) {
	if collection, ok := siw.collection(w, r); ok {
		siw.Handler.DeleteByQuery(w, r, collection)
	}
}

// BulkUpsert operation middleware
func (siw *ServerInterfaceWrapper) BulkUpsert(w http.ResponseWriter, r *http.Request) {
	if collection, ok := siw.collection(w, r); ok {
		siw.Handler.BulkUpsert(w, r, collection)
	}
}

// BulkDelete operation middleware
func (siw *ServerInterfaceWrapper) BulkDelete(w http.ResponseWriter, r *http.Request) {
	if collection, ok := siw.collection(w, r); ok {
		siw.Handler.BulkDelete(w, r, collection)
	}
}

// documentRoute binds {collection} and {key} and forwards to h.
func (siw *ServerInterfaceWrapper) documentRoute(
	h func(http.ResponseWriter, *http.Request, CollectionName, DocumentKey),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collection, ok := siw.collection(w, r)
		if !ok {
			return
		}
		key, ok := siw.key(w, r)
		if !ok {
			return
		}
		h(w, r, collection, key)
	}
}

// SearchDocuments operation middleware
func (siw *ServerInterfaceWrapper) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	if collection, ok := siw.collection(w, r); ok {
		siw.Handler.SearchDocuments(w, r, collection)
	}
}

// SearchDocumentsQuery operation middleware
func (siw *ServerInterfaceWrapper) SearchDocumentsQuery(w http.ResponseWriter, r *http.Request) {
	collection, ok := siw.collection(w, r)
	if !ok {
		return
	}

	var params SearchParams
	query := r.URL.Query()
	binds := []struct {
		name string
		dest any
	}{
		{"q", &params.Q},
		{"fq", &params.Fq},
		{"fl", &params.Fl},
		{"sort", &params.Sort},
		{"fields", &params.Fields},
		{"limit", &params.Limit},
		{"offset", &params.Offset},
		{"facet_limit", &params.FacetLimit},
		{"highlight", &params.Highlight},
		{"highlight_fields", &params.HighlightFields},
		{"highlight_pre_tag", &params.HighlightPreTag},
		{"highlight_post_tag", &params.HighlightPostTag},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", true, false, b.name, query, b.dest); err != nil {
			siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: b.name, Err: err})
			return
		}
	}

	siw.Handler.SearchDocumentsQuery(w, r, collection, params)
}

// RebuildCollection operation middleware
func (siw *ServerInterfaceWrapper) RebuildCollection(w http.ResponseWriter, r *http.Request) {
	if collection, ok := siw.collection(w, r); ok {
		siw.Handler.RebuildCollection(w, r, collection)
	}
}

// GetCollectionAlias operation middleware
func (siw *ServerInterfaceWrapper) GetCollectionAlias(w http.ResponseWriter, r *http.Request) {
	if collection, ok := siw.collection(w, r); ok {
		siw.Handler.GetCollectionAlias(w, r, collection)
	}
}

// GetJob operation middleware
func (siw *ServerInterfaceWrapper) GetJob(w http.ResponseWriter, r *http.Request) {
	var id JobID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "id", Err: err})
		return
	}
	siw.Handler.GetJob(w, r, id)
}

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	// BaseURL prefixes the API routes. /health and /metrics stay at the root.
	BaseURL          string
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerWithOptions registers every route of si on options.BaseRouter.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{Handler: si, ErrorHandlerFunc: options.ErrorHandlerFunc}
	base := options.BaseURL

	r.Get("/health", si.HealthCheck)
	r.Get("/metrics", si.Metrics)

	r.Get(base+"/collections/{collection}/documents", wrapper.ListDocuments)
	r.Get(base+"/collections/{collection}/fetch", wrapper.FetchDocuments)
	r.Post(base+"/collections/{collection}/documents/_delete_by_query", wrapper.DeleteByQuery)
	r.Post(base+"/collections/{collection}/documents/_bulk", wrapper.BulkUpsert)
	r.Post(base+"/collections/{collection}/documents/_bulk_delete", wrapper.BulkDelete)
	r.Get(base+"/collections/{collection}/documents/{key}", wrapper.documentRoute(si.GetDocument))
	r.Put(base+"/collections/{collection}/documents/{key}", wrapper.documentRoute(si.IndexDocument))
	r.Patch(base+"/collections/{collection}/documents/{key}", wrapper.documentRoute(si.UpdateDocument))
	r.Delete(base+"/collections/{collection}/documents/{key}", wrapper.documentRoute(si.DeleteDocument))
	r.Patch(base+"/collections/{collection}/documents/{key}/enhance", wrapper.documentRoute(si.EnhanceDocument))
	r.Post(base+"/collections/{collection}/search", wrapper.SearchDocuments)
	r.Get(base+"/collections/{collection}/search", wrapper.SearchDocumentsQuery)
	r.Post(base+"/collections/{collection}/rebuild", wrapper.RebuildCollection)
	r.Get(base+"/collections/{collection}/alias", wrapper.GetCollectionAlias)
	r.Get(base+"/jobs/{id}", wrapper.GetJob)

	return r
}
