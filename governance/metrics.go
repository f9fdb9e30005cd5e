package governance

import (
	"errors"
	"time"

	"github.com/calehh/hac-dao/ledger"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "hacdao"

type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	busy       prometheus.Gauge
}

// NewMetrics registers the orchestrator metrics with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "governance",
			Name:      "operations_total",
			Help:      "Governance operations by outcome.",
		}, []string{"op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "governance",
			Name:      "operation_seconds",
			Help:      "Time from submission to confirmation or failure.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"op"}),
		busy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "governance",
			Name:      "busy",
			Help:      "1 while a governance operation is in flight.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.duration, m.busy)
	}
	return m
}

func (m *Metrics) observe(op string, err error, took time.Duration) {
	m.operations.WithLabelValues(op, resultLabel(err)).Inc()
	if !errors.Is(err, ErrBusy) {
		m.duration.WithLabelValues(op).Observe(took.Seconds())
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ledger.ErrValidation):
		return "validation"
	case errors.Is(err, ledger.ErrUserDeclined):
		return "declined"
	case errors.Is(err, ledger.ErrLedgerRevert):
		return "revert"
	default:
		return "network"
	}
}
