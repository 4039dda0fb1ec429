package metrics

import "github.com/prometheus/client_golang/prometheus"

// Enrichment worker Prometheus metrics.
var (
	WorkerJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Name:      "worker_jobs_total",
			Help:      "Embedding jobs processed by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	WorkerJobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsearch",
			Name:      "worker_job_duration_seconds",
			Help:      "Embedding job duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"type"},
	)

	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docsearch",
			Name:      "worker_queue_depth",
			Help:      "Jobs waiting in the embedding queue, sampled by the worker",
		},
	)
)

var workerMetricsRegistered bool

// RegisterWorkerMetrics registers worker metrics. Must be called once from main.
func RegisterWorkerMetrics() {
	if workerMetricsRegistered {
		return
	}
	prometheus.MustRegister(WorkerJobsTotal)
	prometheus.MustRegister(WorkerJobDuration)
	prometheus.MustRegister(WorkerQueueDepth)
	workerMetricsRegistered = true
}
