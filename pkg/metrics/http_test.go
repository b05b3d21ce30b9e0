package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.ObserveRequest(http.MethodGet, "/api/v1/vehicles/{vehicleId}", http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/api/v1/vehicles/{vehicleId}", http.StatusNotFound, 5*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)
	family := findMetricFamily(families, "rentalz_http_requests_total")
	require.NotNil(t, family)
	require.Len(t, family.GetMetric(), 3)

	var unmatched bool
	for _, metric := range family.GetMetric() {
		if matchesLabel(metric.GetLabel(), "route", "unmatched") {
			unmatched = true
		}
	}
	require.True(t, unmatched)
}

func TestHTTPMetricsNilSafe(t *testing.T) {
	var m *HTTPMetrics
	m.ObserveRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	NewHTTPMetrics(nil).ObserveRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
}
