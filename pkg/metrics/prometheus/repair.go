package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/coopfs/pkg/cooplock/fsck"
	"github.com/marmos91/coopfs/pkg/metrics"
)

// repairMetrics is the Prometheus implementation of fsck.Metrics.
type repairMetrics struct {
	repairsTotal   *prometheus.CounterVec
	repairDuration *prometheus.HistogramVec
}

// NewRepairMetrics creates a new Prometheus-backed fsck.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewRepairMetrics() fsck.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &repairMetrics{
		repairsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coopfs_repairs_total",
				Help: "Total number of attempted repairs by kind, direction and status",
			},
			[]string{"kind", "direction", "status"},
		),
		repairDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "coopfs_repair_duration_milliseconds",
				Help: "Duration of individual repairs in milliseconds",
				Buckets: []float64{
					50,     // 50ms - journal-only cleanups
					250,    // 250ms
					1000,   // 1s - small plans
					5000,   // 5s
					30000,  // 30s - large plans
					120000, // 2m
				},
			},
			[]string{"kind", "direction"},
		),
	}
}

func (m *repairMetrics) ObserveRepair(kind, direction string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	m.repairsTotal.WithLabelValues(kind, direction, status).Inc()
	m.repairDuration.WithLabelValues(kind, direction).Observe(duration.Seconds() * 1000)
}

// Ensure repairMetrics implements fsck.Metrics.
var _ fsck.Metrics = (*repairMetrics)(nil)
