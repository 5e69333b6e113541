// Package prometheus contains the Prometheus-backed implementations of the
// metrics interfaces consumed by directory operations and the repair engine.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/coopfs/pkg/dirops"
	"github.com/marmos91/coopfs/pkg/metrics"
)

// operationMetrics is the Prometheus implementation of dirops.Metrics.
type operationMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationItems    *prometheus.HistogramVec
}

// NewOperationMetrics creates a new Prometheus-backed dirops.Metrics
// instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewOperationMetrics() dirops.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &operationMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coopfs_operations_total",
				Help: "Total number of directory operations by kind and status",
			},
			[]string{"kind", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "coopfs_operation_duration_milliseconds",
				Help: "Duration of directory operations in milliseconds",
				Buckets: []float64{
					100,    // 100ms - small trees
					500,    // 500ms
					1000,   // 1s
					5000,   // 5s - medium trees
					15000,  // 15s
					60000,  // 1m - large trees
					300000, // 5m - very large trees
				},
			},
			[]string{"kind"},
		),
		operationItems: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "coopfs_operation_items",
				Help: "Distribution of plan sizes per directory operation",
				Buckets: []float64{
					1,     // single object
					10,    // small directory
					100,   // medium directory
					1000,  // large directory
					10000, // very large directory
				},
			},
			[]string{"kind"},
		),
	}
}

func (m *operationMetrics) ObserveOperation(kind string, items int, duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	m.operationsTotal.WithLabelValues(kind, status).Inc()
	m.operationDuration.WithLabelValues(kind).Observe(duration.Seconds() * 1000)
	m.operationItems.WithLabelValues(kind).Observe(float64(items))
}

// Ensure operationMetrics implements dirops.Metrics.
var _ dirops.Metrics = (*operationMetrics)(nil)
