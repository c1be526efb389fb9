package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEnrollment(t *testing.T) {
	m := New()
	m.RecordEnrollment("enroll", "ok")
	m.RecordEnrollment("enroll", "ok")
	m.RecordEnrollment("enroll", "full")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.enrollments.WithLabelValues("enroll", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.enrollments.WithLabelValues("enroll", "full")))
}

func TestRequestLifecycle(t *testing.T) {
	m := New()
	m.RequestStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpInFlight))

	m.RequestFinished(http.MethodGet, "/workshops/{id}", http.StatusOK, 10*time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/workshops/{id}", "200")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RequestStarted()
		m.RequestFinished(http.MethodGet, "/", http.StatusOK, time.Millisecond)
		m.RecordEnrollment("enroll", "ok")
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.RecordEnrollment("cancel", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `workshop_enrollment_enrollment_operations_total{operation="cancel",outcome="ok"} 1`))
}
