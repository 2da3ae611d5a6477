package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettleUp(t *testing.T) {
	m := New()
	m.SettleUp(SettleSettled, 2, decimal.RequireFromString("30.50"))
	m.SettleUp(SettleNoop, 0, decimal.Zero)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.settleUps.WithLabelValues(SettleSettled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.settleUps.WithLabelValues(SettleNoop)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.settledTransactions))
	assert.InDelta(t, 30.5, testutil.ToFloat64(m.settledAmount), 1e-9)
}

func TestListeners(t *testing.T) {
	m := New()
	m.ListenerAdded()
	m.ListenerAdded()
	m.ListenerRemoved(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.listeners))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.listenersPruned))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SettleUp(SettleSettled, 1, decimal.NewFromInt(1))
		m.EventPublished("NEW_BILL")
		m.ListenerAdded()
		m.ListenerRemoved(false)
		m.ReminderSent()
		m.ObserveRPC("/x", "ok", time.Second)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.EventPublished("SETTLE_UP")
	m.ObserveRPC("/settlewise.v1.BillService/SettleUp", "ok", 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `settlewise_events_published_total{type="SETTLE_UP"} 1`), body)
	assert.Contains(t, body, "settlewise_rpc_duration_seconds_bucket")
	assert.Contains(t, body, "go_goroutines")
}
