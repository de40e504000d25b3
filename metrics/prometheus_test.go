package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)

	labels := map[string]string{LabelChain: "BASE", LabelAsset: "USDC"}
	rec.IncCounter(PaymentSubmitted, labels)
	rec.IncCounter(PaymentSubmitted, labels)
	rec.IncCounter(PaymentFailed, map[string]string{LabelChain: "BASE"})
	rec.ObserveLatency(OpDispatch, 150*time.Millisecond, labels)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.counters.WithLabelValues(PaymentSubmitted, "BASE", "USDC")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.counters.WithLabelValues(PaymentFailed, "BASE", "")))
	assert.Equal(t, 1, testutil.CollectAndCount(rec.histogram))
}

func TestPrometheusRecorderSharesExistingVectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)
	second, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)

	labels := map[string]string{LabelChain: "LOCAL", LabelAsset: "native"}
	first.IncCounter(PaymentConfirmed, labels)
	second.IncCounter(PaymentConfirmed, labels)

	assert.Equal(t, 2.0, testutil.ToFloat64(first.counters.WithLabelValues(PaymentConfirmed, "LOCAL", "native")))
}

func TestPrometheusRecorderConflictingCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "iagentpay",
		Name:      "events_total",
		Help:      "Payment lifecycle events",
	})))

	_, err := NewPrometheusRecorder(reg)
	assert.Error(t, err)
}
