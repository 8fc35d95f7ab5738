// Package metrics holds the Prometheus collectors shared by the API server
// and the worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsQueued counts take-off runs accepted by the API.
	RunsQueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "takeoff_runs_queued_total",
		Help: "Take-off runs accepted and published to the work queue.",
	})

	// RunsProcessed counts worker outcomes by result.
	RunsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "takeoff_runs_processed_total",
		Help: "Take-off runs processed by the worker.",
	}, []string{"outcome"})

	// HTTPRequests counts API requests by route and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "takeoff_http_requests_total",
		Help: "API requests served.",
	}, []string{"method", "path", "status"})

	// ModelTokens accumulates model token usage reported per run.
	ModelTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "takeoff_model_tokens_total",
		Help: "Model tokens consumed by the pipeline.",
	}, []string{"direction"})
)
