package publisher

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/trustlog/internal/reducer"
)

const metricsNamespace = "trustlog"

// Fold kinds used as the "kind" label.
const (
	foldIncremental = "incremental"
	foldFull        = "full"
)

// metrics holds the publisher's Prometheus collectors.
type metrics struct {
	applied      prometheus.Counter
	dropped      *prometheus.CounterVec
	version      prometheus.Gauge
	foldDuration *prometheus.HistogramVec
	discarded    prometheus.Counter
}

// newMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		applied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "publisher",
			Name:      "operations_applied_total",
			Help:      "Operations folded into a published snapshot",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "publisher",
			Name:      "operations_dropped_total",
			Help:      "Operations skipped by the fold, by drop code",
		}, []string{"code"}),
		version: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "publisher",
			Name:      "snapshot_version",
			Help:      "Version of the currently published snapshot",
		}),
		foldDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "publisher",
			Name:      "fold_duration_seconds",
			Help:      "Time spent folding operations, by fold kind",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"kind"}),
		discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "publisher",
			Name:      "folds_discarded_total",
			Help:      "Full folds discarded because a newer snapshot was published first",
		}),
	}
	// Pre-populate drop codes so they export as zero.
	for _, code := range reducer.DropCodes() {
		m.dropped.WithLabelValues(string(code))
	}
	if reg != nil {
		reg.MustRegister(m.applied, m.dropped, m.version, m.foldDuration, m.discarded)
	}
	return m
}

func (m *metrics) recordFold(kind string, seconds float64, applied int, drops []*reducer.DropError) {
	m.foldDuration.WithLabelValues(kind).Observe(seconds)
	m.applied.Add(float64(applied))
	for _, d := range drops {
		m.dropped.WithLabelValues(string(d.Code)).Inc()
	}
}
