package docsearch

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/docsearch/internal/domain"
)

const (
	metricsNamespace = "docsearch"
	metricsSubsystem = "sdk"
)

// Outcome label values. Caller mistakes are told apart from backend failures.
const (
	outcomeOK          = "ok"
	outcomeNotFound    = "not_found"
	outcomeInvalid     = "invalid"
	outcomeConflict    = "conflict"
	outcomeUnavailable = "unavailable"
	outcomeError       = "error"
)

type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "operations_total",
		Help:      "SDK operations by name and outcome.",
	}, []string{"operation", "outcome"})
	dur := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "operation_duration_seconds",
		Help:      "SDK operation latency, engine retries included.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 30, 300},
	}, []string{"operation"})

	var err error
	if ops, err = shared(reg, ops); err != nil {
		return nil, err
	}
	if dur, err = shared(reg, dur); err != nil {
		return nil, err
	}
	return &sdkMetrics{operations: ops, duration: dur}, nil
}

// shared registers c, or hands back the collector a previous Client put in
// reg under the same name.
func shared[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, fmt.Errorf("docsearch: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return c, fmt.Errorf("docsearch: metric registered with incompatible type %T", are.ExistingCollector)
	}
	return existing, nil
}

// observer records metrics and logs for SDK calls. A nil observer, or one
// without a logger or registry, silently skips the missing part.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// observe records one finished call. attrs are extra slog key/value pairs.
func (o *observer) observe(op string, start time.Time, err error, attrs ...any) {
	if o == nil {
		return
	}
	elapsed := time.Since(start)
	outcome := outcomeOf(err)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, outcome).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	}
	if o.logger == nil {
		return
	}

	args := append([]any{"op", op, "outcome", outcome, "duration", elapsed}, attrs...)
	switch outcome {
	case outcomeOK:
		o.logger.Debug("docsearch call completed", args...)
	case outcomeNotFound, outcomeInvalid, outcomeConflict:
		o.logger.Info("docsearch call rejected", append(args, "error", err)...)
	default:
		o.logger.Warn("docsearch call failed", append(args, "error", err)...)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrDocumentNotFound):
		return outcomeNotFound
	case errors.Is(err, domain.ErrInvalidRequest):
		return outcomeInvalid
	case errors.Is(err, domain.ErrAlreadyExists):
		return outcomeConflict
	case errors.Is(err, domain.ErrUnavailable), errors.Is(err, domain.ErrTimeout):
		return outcomeUnavailable
	default:
		return outcomeError
	}
}
