package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/metrics"
)

// APIBaseURL prefixes every API route.
const APIBaseURL = "/api/v1"

// NewRouter mounts s behind recovery, request id, canonical logging, bearer
// auth and HTTP metrics.
func NewRouter(s ServerInterface, apiKeys []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(CanonicalLog(logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	return HandlerWithOptions(s, ChiServerOptions{
		BaseURL:          APIBaseURL,
		BaseRouter:       r,
		ErrorHandlerFunc: ParamErrorHandler,
	})
}
