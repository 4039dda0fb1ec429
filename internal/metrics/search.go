package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and index lifecycle Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"collection", "status"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsearch",
			Name:      "search_duration_seconds",
			Help:      "Search execution duration in seconds, retries included",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"collection"},
	)

	SortRepairsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Name:      "search_sort_repairs_total",
			Help:      "Searches retried with keyword sort fields after a fielddata rejection",
		},
		[]string{"collection", "outcome"},
	)

	DocumentCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Name:      "document_cache_total",
			Help:      "Document cache hits and misses",
		},
		[]string{"result"},
	)

	RebuildRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Name:      "rebuild_runs_total",
			Help:      "Index rebuilds by outcome",
		},
		[]string{"alias", "outcome"},
	)

	RebuildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsearch",
			Name:      "rebuild_duration_seconds",
			Help:      "Index rebuild duration in seconds",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
		},
		[]string{"alias"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search, cache and rebuild metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SortRepairsTotal)
	prometheus.MustRegister(DocumentCacheTotal)
	prometheus.MustRegister(RebuildRunsTotal)
	prometheus.MustRegister(RebuildDuration)
	searchMetricsRegistered = true
}
