package redlock

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors a Manager updates as it runs.
// Construct one with NewMetrics and register it against a Registerer of
// your choosing (see WithMetrics); a fresh, unregistered Metrics is safe to
// use standalone, it simply won't be scraped.
type Metrics struct {
	AcquireTotal        *prometheus.CounterVec
	ReleaseTotal        *prometheus.CounterVec
	ExtendTotal         *prometheus.CounterVec
	OpLatencySeconds    *prometheus.HistogramVec
	ServerErrorsTotal   *prometheus.CounterVec
	AutoExtensionsTotal *prometheus.CounterVec
	HandlesActive       prometheus.Gauge
}

// NewMetrics constructs a Metrics with fresh, unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		AcquireTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redlock_acquire_total",
				Help: "Total acquire attempts by result",
			},
			[]string{"result"},
		),
		ReleaseTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redlock_release_total",
				Help: "Total release attempts by result",
			},
			[]string{"result"},
		),
		ExtendTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redlock_extend_total",
				Help: "Total extend attempts by result",
			},
			[]string{"result"},
		),
		OpLatencySeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "redlock_op_latency_seconds",
				Help:    "Latency of manager operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		ServerErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redlock_server_errors_total",
				Help: "Total per-server script failures by operation",
			},
			[]string{"op"},
		),
		AutoExtensionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redlock_auto_extensions_total",
				Help: "Total auto-extension renewals by result",
			},
			[]string{"result"},
		),
		HandlesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "redlock_handles_active",
			Help: "Number of acquired handles not yet released",
		}),
	}
}

// register registers every collector against reg and ignores every
// registration error, AlreadyRegisteredError included, so the same Metrics
// can be safely reused across managers built against the same registry.
func (m *Metrics) register(reg prometheus.Registerer) {
	for _, c := range []prometheus.Collector{
		m.AcquireTotal,
		m.ReleaseTotal,
		m.ExtendTotal,
		m.OpLatencySeconds,
		m.ServerErrorsTotal,
		m.AutoExtensionsTotal,
		m.HandlesActive,
	} {
		var are prometheus.AlreadyRegisteredError
		if err := reg.Register(c); err != nil && !errors.As(err, &are) {
			continue
		}
	}
}
