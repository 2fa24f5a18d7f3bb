// Package observability exposes Prometheus metrics for the HTTP surface and
// the question-answering pipeline.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablescout_http_requests_total",
			Help: "Total HTTP requests by method, path, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tablescout_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	pipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tablescout_pipeline_stage_duration_seconds",
			Help:    "Pipeline stage latency by stage and outcome.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage", "outcome"},
	)

	embeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablescout_embedding_requests_total",
			Help: "Embedding gateway calls by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	indexedSchemasTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tablescout_indexed_schemas_total",
			Help: "Schema records written to the vector index.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		pipelineStageDuration,
		embeddingRequestsTotal,
		indexedSchemasTotal,
	)
}

// ObserveHTTPRequest records one completed HTTP request.
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObservePipelineStage records one pipeline stage run.
func ObservePipelineStage(stage string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}

	pipelineStageDuration.WithLabelValues(stage, outcome).Observe(duration.Seconds())
}

// ObserveEmbeddingRequest records one embedding gateway call.
func ObserveEmbeddingRequest(provider string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}

	embeddingRequestsTotal.WithLabelValues(provider, outcome).Inc()
}

// AddIndexedSchemas records schema records written to the vector index.
func AddIndexedSchemas(count int) {
	indexedSchemasTotal.Add(float64(count))
}
