package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.CycleCompleted(2 * time.Second)
	m.CycleCompleted(2 * time.Second)
	m.CycleFailed(KindAcquire)
	m.Decided("Running")
	m.Published(2)
	m.Anomaly(1.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cycles))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues(KindAcquire)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.failures.WithLabelValues(KindClassify)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("Running")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishes))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.activity))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.anomaly))
}

func TestHandler(t *testing.T) {
	m := New()
	m.Published(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "fittrack_activity 1")
	assert.Contains(t, string(body), "fittrack_publishes_total 1")
}
