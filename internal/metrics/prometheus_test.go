// Package metrics provides Prometheus metrics for the redlock benchmark server.
package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	RegisterMetricsEndpoint(router)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# HELP")
}

func TestRegisterMetricsEndpointWithPath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	RegisterMetricsEndpointWithPath(router, "/custom/metrics")

	req := httptest.NewRequest("GET", "/custom/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := MetricsHandler()

	require.NotNil(t, handler)
}

func TestRecordHTTPRequest(t *testing.T) {
	RecordHTTPRequest("GET", "/admin/bench", "200")
	RecordHTTPRequest("POST", "/admin/bench", "413")
}

func TestRecordHTTPRequestDuration(t *testing.T) {
	RecordHTTPRequestDuration("GET", "/admin/bench", 0.05)
	RecordHTTPRequestDuration("POST", "/admin/bench", 0.2)
}

func TestRecordBenchRun(t *testing.T) {
	RecordBenchRun("completed")
	RecordBenchRun("error")
}

func TestSetBenchClientsActive(t *testing.T) {
	SetBenchClientsActive(10)
	SetBenchClientsActive(0)
}

func TestMetricsAreRegistered(t *testing.T) {
	metrics := []prometheus.Collector{
		HTTPRequestsTotal,
		HTTPRequestDuration,
		BenchRunsTotal,
		BenchClientsActive,
	}

	for _, metric := range metrics {
		assert.NotNil(t, metric)
	}
}
