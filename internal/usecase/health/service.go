package health

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/logger"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is down.
	Degraded Status = "degraded"
	// Unhealthy indicates the search engine is down.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

const checkTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	engine Pinger
	redis  Pinger
}

// New creates a Service. redis can be nil when neither cache nor queue is configured.
func New(engine, redis Pinger) *Service {
	return &Service{engine: engine, redis: redis}
}

// Check runs health checks against all components.
// A failing engine makes the report Unhealthy; a failing Redis only Degraded.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 2)
	status := Healthy

	if !s.ping(ctx, "engine", s.engine, checks) {
		status = Unhealthy
	}
	if s.redis != nil && !s.ping(ctx, "redis", s.redis, checks) && status == Healthy {
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) ping(ctx context.Context, name string, p Pinger, checks map[string]CheckResult) bool {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		logger.FromContext(ctx).Warn("Health check failed", zap.String("component", name), zap.Error(err))
		checks[name] = CheckError
		return false
	}
	checks[name] = CheckOK
	return true
}
