// Package observability exposes Prometheus collectors and the operational
// HTTP sidecar (health, readiness, metrics).
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkflowRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsagent_workflow_runs_total",
		Help: "The total number of workflow runs by terminal status",
	}, []string{"status"})

	WorkflowRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsagent_workflow_retries_total",
		Help: "The total number of quality-gated search enhancement retries",
	})

	WorkflowQualityScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "newsagent_workflow_quality_score",
		Help:    "Distribution of quality scores at the quality gate",
		Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsagent_cache_hits_total",
		Help: "The total number of cache hits by cache name",
	}, []string{"cache"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsagent_cache_misses_total",
		Help: "The total number of cache misses by cache name",
	}, []string{"cache"})

	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsagent_provider_requests_total",
		Help: "The total number of news provider requests by provider and result",
	}, []string{"provider", "result"})

	ExtractionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsagent_extraction_failures_total",
		Help: "The total number of articles dropped after failed extraction",
	})

	SummaryRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsagent_summary_requests_total",
		Help: "The total number of summary generations by result",
	}, []string{"result"})

	SummaryRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsagent_summary_retries_total",
		Help: "The total number of retried summary generation attempts",
	})

	SummaryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "newsagent_summary_duration_seconds",
		Help:    "Duration of summary generation calls",
		Buckets: prometheus.DefBuckets,
	})
)
