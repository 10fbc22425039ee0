package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	SearchStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_stage_duration_seconds",
			Help:      "Duration of each search pipeline stage",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"stage"},
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Completed searches by result source",
		},
		[]string{"source"},
	)

	GarbageQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "garbage_queries_total",
			Help:      "Queries rejected before retrieval",
		},
	)

	DegradedSearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_searches_total",
			Help:      "Searches fused without one of the ranking signals",
		},
		[]string{"missing"}, // "vector" / "lexical"
	)

	QueryEnhancementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_enhancements_total",
			Help:      "Query enhancement outcomes",
		},
		[]string{"path"}, // "ai" / "rules" / "ai_fallback"
	)

	IndexedRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indexed_records_total",
			Help:      "Records processed by batch indexing",
		},
		[]string{"status"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search pipeline metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchStageDuration)
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(GarbageQueriesTotal)
	prometheus.MustRegister(DegradedSearchesTotal)
	prometheus.MustRegister(QueryEnhancementsTotal)
	prometheus.MustRegister(IndexedRecordsTotal)
	searchMetricsRegistered = true
}
