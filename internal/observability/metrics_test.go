package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/disputes/:id", "GET", 200, 20*time.Millisecond)
	m.RecordRequest("/disputes/:id", "GET", 200, 30*time.Millisecond)
	m.RecordError("/disputes/:id", "PATCH", "FORBIDDEN")
	m.RecordTransition("open", "processing")
	m.RecordDenial("dispute.update")
	m.RecordAuditFailure("redis")
	m.RecordWarning("invitation.letter")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/disputes/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsTotal.WithLabelValues("PATCH", "/disputes/:id", "FORBIDDEN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitionsTotal.WithLabelValues("open", "processing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.denialsTotal.WithLabelValues("dispute.update")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.auditFailures.WithLabelValues("redis")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.warningsTotal.WithLabelValues("invitation.letter")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.requestDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordDenial("x")
		m.RecordTransition("a", "b")
	})
	assert.Nil(t, m.Registry())
}
