package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the CPF registry module.
type Metrics struct {
	Registered        prometheus.Counter
	Removed           prometheus.Counter
	Rejected          *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// New registers the CPF module metrics with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registered: factory.NewCounter(prometheus.CounterOpts{
			Name: "cpf_registered_total",
			Help: "Total number of CPF records registered",
		}),
		Removed: factory.NewCounter(prometheus.CounterOpts{
			Name: "cpf_removed_total",
			Help: "Total number of CPF records removed",
		}),
		Rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cpf_rejected_total",
			Help: "CPF requests rejected by reason",
		}, []string{"reason"}), // reason: "invalid", "duplicate", "not_found"
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cpf_operation_duration_seconds",
			Help:    "Duration of CPF service operations including the store round trip",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementRegistered() {
	if m != nil {
		m.Registered.Inc()
	}
}

func (m *Metrics) IncrementRemoved() {
	if m != nil {
		m.Removed.Inc()
	}
}

func (m *Metrics) IncrementRejected(reason string) {
	if m != nil {
		m.Rejected.WithLabelValues(reason).Inc()
	}
}

// ObserveOperation records the duration of an operation started at start.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m != nil {
		m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
