package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation names used as the "operation" label.
const (
	OpCreate         = "create"
	OpSubmitEvidence = "submit_evidence"
	OpConfirm        = "confirm"
	OpOverrideExpiry = "override_expiry"
	OpDelete         = "delete"
	OpPendingQueue   = "pending_queue"
)

// Metrics provides observability for the listing payment lifecycle.
type Metrics struct {
	// Operation outcomes by operation and outcome ("success", "failure")
	Operations *prometheus.CounterVec

	OperationLatency *prometheus.HistogramVec

	// Size of the confirmation work queue at its last read
	PendingQueueSize prometheus.Gauge

	ReceiptBytes prometheus.Histogram
}

// New registers the listing metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the listing metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bizdir_listing_operations_total",
			Help: "Total listing lifecycle operations by operation and outcome",
		}, []string{"operation", "outcome"}),

		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bizdir_listing_operation_duration_seconds",
			Help:    "Duration of listing lifecycle operations including remote I/O",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),

		PendingQueueSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bizdir_listing_pending_confirmation",
			Help: "Listings awaiting payment confirmation at the last queue read",
		}),

		ReceiptBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bizdir_listing_receipt_bytes",
			Help:    "Size of uploaded payment receipts",
			Buckets: prometheus.ExponentialBuckets(4096, 2, 9),
		}),
	}
}

// IncrementOutcome records an operation outcome.
func (m *Metrics) IncrementOutcome(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveLatency(operation string, d time.Duration) {
	if m != nil {
		m.OperationLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

func (m *Metrics) SetPendingQueueSize(n int) {
	if m != nil {
		m.PendingQueueSize.Set(float64(n))
	}
}

func (m *Metrics) ObserveReceiptSize(n int) {
	if m != nil {
		m.ReceiptBytes.Observe(float64(n))
	}
}
