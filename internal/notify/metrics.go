package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for notification fan-out.
type Metrics struct {
	Dropped      *prometheus.CounterVec
	SinkFailures *prometheus.CounterVec
	Subscribers  prometheus.Gauge
	BreakerState *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Dropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sampletrack_notify_dropped_total",
			Help: "Events not delivered because a buffer was full",
		}, []string{"reason"}), // dispatch_full, subscriber_full, sink_full
		SinkFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sampletrack_notify_sink_failures_total",
			Help: "Sink deliveries that failed after retries",
		}, []string{"sink"}),
		Subscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sampletrack_notify_subscribers",
			Help: "Live subscriptions on this instance",
		}),
		BreakerState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sampletrack_notify_circuit_open",
			Help: "Circuit breaker state per delivery target (0=closed, 1=open)",
		}, []string{"target"}),
	}
}

func (m *Metrics) IncDropped(reason string) {
	if m != nil {
		m.Dropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncSinkFailure(sink string) {
	if m != nil {
		m.SinkFailures.WithLabelValues(sink).Inc()
	}
}

func (m *Metrics) SetSubscribers(n int) {
	if m != nil {
		m.Subscribers.Set(float64(n))
	}
}

func (m *Metrics) SetBreakerState(target string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.BreakerState.WithLabelValues(target).Set(v)
}
