// Package metrics provides Prometheus metrics for the redlock benchmark server.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal tracks total HTTP requests handled by the benchmark server.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request duration.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// BenchRunsTotal tracks the WithLock attempts made during contention-test
	// runs, by outcome (one increment per attempt, not per run).
	BenchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bench_runs_total",
			Help: "Total WithLock attempts made during contention-test runs, by outcome",
		},
		[]string{"outcome"},
	)

	// BenchClientsActive tracks the number of simulated clients currently contending for a lock.
	BenchClientsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bench_clients_active",
			Help: "Number of simulated clients currently contending for a lock",
		},
	)
)

// RegisterMetricsEndpoint registers the /metrics endpoint on a Gin router.
func RegisterMetricsEndpoint(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// RegisterMetricsEndpointWithPath registers the metrics endpoint at a custom path.
func RegisterMetricsEndpointWithPath(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// MetricsHandler returns the Prometheus HTTP handler.
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(method, path, status string) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(method, path string, seconds float64) {
	HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

// RecordBenchRun records the outcome of one WithLock attempt made during a
// contention-test run.
func RecordBenchRun(outcome string) {
	BenchRunsTotal.WithLabelValues(outcome).Inc()
}

// SetBenchClientsActive sets the number of simulated clients currently contending for a lock.
func SetBenchClientsActive(count float64) {
	BenchClientsActive.Set(count)
}
