package redlock

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	defaultDriftFactor       = 0.01
	defaultRetryDelay        = 200 * time.Millisecond
	defaultRetryJitter       = 100 * time.Millisecond
	defaultMaxRetryAttempts  = 3
	defaultTokenLength       = 22
)

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithDriftFactor sets the fraction of TTL reserved to compensate for clock
// skew across servers. Must be in [0, 0.1]; validated by NewManager.
func WithDriftFactor(factor float64) Option {
	return func(m *Manager) { m.driftFactor = factor }
}

// WithRetryDelay sets the base delay between acquisition retries.
func WithRetryDelay(d time.Duration) Option {
	return func(m *Manager) { m.retryDelay = d }
}

// WithRetryJitter sets the maximum additional random delay added to each
// retry wait.
func WithRetryJitter(d time.Duration) Option {
	return func(m *Manager) { m.retryJitter = d }
}

// WithMaxRetryAttempts sets the number of retries attempted after the
// initial acquisition attempt fails.
func WithMaxRetryAttempts(n int) Option {
	return func(m *Manager) { m.maxRetryAttempts = n }
}

// WithTokenLength sets the length, in characters, of generated tokens.
func WithTokenLength(n int) Option {
	return func(m *Manager) { m.tokenLength = n }
}

// WithLogger attaches a structured logger. The default logger is disabled.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics attaches a Metrics instance and registers its collectors
// against reg. Pass prometheus.NewRegistry() to keep a manager's metrics
// isolated from the process-wide default registry, which matters when a
// process constructs more than one Manager. If this option is omitted, the
// Manager records no metrics and Manager.Metrics returns nil.
func WithMetrics(m *Metrics, reg prometheus.Registerer) Option {
	return func(mgr *Manager) {
		mgr.metrics = m
		if reg != nil {
			m.register(reg)
		}
	}
}
