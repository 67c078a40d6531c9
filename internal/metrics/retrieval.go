package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval pipeline Prometheus metrics.
var (
	RetrievalStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retriever",
			Name:      "retrieval_stage_duration_seconds",
			Help:      "Duration of each retrieval pipeline stage",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"stage"}, // normalize / embed / local_scan / remote_query / fuse / diversity / boost
	)

	RetrievalTierEscalations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retriever",
			Name:      "retrieval_tier_admissions_total",
			Help:      "Results admitted per threshold tier on the local path",
		},
		[]string{"tier"},
	)

	RetrievalFusionPath = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retriever",
			Name:      "retrieval_fusion_path_total",
			Help:      "Remote searches by fusion path",
		},
		[]string{"path"}, // "native" / "manual" / "vector_only" / "lexical_only"
	)

	RetrievalEmptyResults = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "retriever",
			Name:      "retrieval_empty_results_total",
			Help:      "Retrievals that exhausted all tiers with zero survivors",
		},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalStageDuration)
	prometheus.MustRegister(RetrievalTierEscalations)
	prometheus.MustRegister(RetrievalFusionPath)
	prometheus.MustRegister(RetrievalEmptyResults)
	retrievalMetricsRegistered = true
}
