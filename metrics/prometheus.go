package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type PrometheusRecorder struct {
	counters  *prometheus.CounterVec
	histogram *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the payment vectors with reg, or with the
// default registerer when reg is nil. Vectors already registered by an earlier
// recorder are shared.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	counters := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iagentpay",
			Name:      "events_total",
			Help:      "Payment lifecycle events",
		},
		[]string{"type", LabelChain, LabelAsset},
	)

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "iagentpay",
			Name:      "latency_seconds",
			Help:      "Dispatch and confirmation latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", LabelChain, LabelAsset},
	)

	if err := reg.Register(counters); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		if counters, ok = are.ExistingCollector.(*prometheus.CounterVec); !ok {
			return nil, err
		}
	}
	if err := reg.Register(histogram); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		if histogram, ok = are.ExistingCollector.(*prometheus.HistogramVec); !ok {
			return nil, err
		}
	}

	return &PrometheusRecorder{
		counters:  counters,
		histogram: histogram,
	}, nil
}

func (p *PrometheusRecorder) IncCounter(name string, labels map[string]string) {
	p.counters.With(prometheus.Labels{
		"type":     name,
		LabelChain: labels[LabelChain],
		LabelAsset: labels[LabelAsset],
	}).Inc()
}

func (p *PrometheusRecorder) ObserveLatency(name string, d time.Duration, labels map[string]string) {
	p.histogram.With(prometheus.Labels{
		"operation": name,
		LabelChain:  labels[LabelChain],
		LabelAsset:  labels[LabelAsset],
	}).Observe(d.Seconds())
}
