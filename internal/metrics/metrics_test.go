package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/contacts-service/internal/metrics"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTP("GET", "/contacts", 200, time.Millisecond)
		m.ObserveRemote("list", "ok", time.Millisecond)
		m.OperationFailed("create")
	})
}

func TestMetrics_CountsAndExposes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveRemote("list", "ok", 10*time.Millisecond)
	m.ObserveRemote("list", "ok", 20*time.Millisecond)
	m.ObserveRemote("get", "not_found", time.Millisecond)
	m.OperationFailed("delete")

	expected := `
# HELP contacts_operation_failures_total Failures absorbed into the failure status shown to the user, by action.
# TYPE contacts_operation_failures_total counter
contacts_operation_failures_total{action="delete"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "contacts_operation_failures_total"))

	w := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `contacts_remote_calls_total{operation="list",outcome="ok"} 2`)
	assert.Contains(t, w.Body.String(), `contacts_remote_calls_total{operation="get",outcome="not_found"} 1`)
}
