package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the tracking module.
type Metrics struct {
	// Telemetry readings by type and whether they fell inside the normal band
	ReadingsIngested *prometheus.CounterVec

	// Alerts raised by type and severity
	AlertsRaised *prometheus.CounterVec

	// Accepted lifecycle transitions by target status
	Transitions *prometheus.CounterVec

	// Accepted custody transfers by purpose
	CustodyTransfers *prometheus.CounterVec

	ChainFailures prometheus.Counter

	// Writes shed because a sample's queue was full
	BackpressureRejections prometheus.Counter

	OperationLatency *prometheus.HistogramVec
}

// New creates a new Metrics instance with all tracking metrics registered.
func New() *Metrics {
	return &Metrics{
		ReadingsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sampletrack_telemetry_readings_total",
			Help: "Telemetry readings ingested by type and range",
		}, []string{"type", "within_range"}),

		AlertsRaised: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sampletrack_alerts_raised_total",
			Help: "Tracking alerts raised by type and severity",
		}, []string{"type", "severity"}),

		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sampletrack_status_transitions_total",
			Help: "Accepted sample status transitions by target status",
		}, []string{"to"}),

		CustodyTransfers: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sampletrack_custody_transfers_total",
			Help: "Accepted custody transfers by purpose",
		}, []string{"purpose"}),

		ChainFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sampletrack_custody_chain_failures_total",
			Help: "Custody chains that failed verification",
		}),

		BackpressureRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sampletrack_backpressure_rejections_total",
			Help: "Writes rejected because the per-sample queue was full",
		}),

		OperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sampletrack_operation_duration_seconds",
			Help:    "Duration of controller operations including queueing",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncReading(typ string, withinRange bool) {
	if m != nil {
		within := "false"
		if withinRange {
			within = "true"
		}
		m.ReadingsIngested.WithLabelValues(typ, within).Inc()
	}
}

func (m *Metrics) IncAlertRaised(typ, severity string) {
	if m != nil {
		m.AlertsRaised.WithLabelValues(typ, severity).Inc()
	}
}

func (m *Metrics) IncTransition(to string) {
	if m != nil {
		m.Transitions.WithLabelValues(to).Inc()
	}
}

func (m *Metrics) IncCustodyTransfer(purpose string) {
	if m != nil {
		m.CustodyTransfers.WithLabelValues(purpose).Inc()
	}
}

func (m *Metrics) IncChainFailure() {
	if m != nil {
		m.ChainFailures.Inc()
	}
}

func (m *Metrics) IncBackpressure() {
	if m != nil {
		m.BackpressureRejections.Inc()
	}
}

// ObserveOperation records how long a controller operation took.
func (m *Metrics) ObserveOperation(op string, d time.Duration) {
	if m != nil {
		m.OperationLatency.WithLabelValues(op).Observe(d.Seconds())
	}
}
