package redlock

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Manager coordinates lock acquisition, release, and extension across a
// fixed, ordered set of independent servers. A Manager is safe for
// concurrent use by multiple goroutines.
type Manager struct {
	servers []ServerClient
	quorum  int

	driftFactor      float64
	retryDelay       time.Duration
	retryJitter      time.Duration
	maxRetryAttempts int
	tokenLength      int

	logger  zerolog.Logger
	metrics *Metrics
}

// NewManager constructs a Manager over a non-empty, ordered list of server
// clients. Options override the defaults documented on each With* function.
func NewManager(servers []ServerClient, opts ...Option) (*Manager, error) {
	if len(servers) == 0 {
		return nil, invalidParameter("server list must be non-empty")
	}

	m := &Manager{
		servers:          append([]ServerClient(nil), servers...),
		driftFactor:      defaultDriftFactor,
		retryDelay:       defaultRetryDelay,
		retryJitter:      defaultRetryJitter,
		maxRetryAttempts: defaultMaxRetryAttempts,
		tokenLength:      defaultTokenLength,
		logger:           zerolog.Nop(),
	}
	m.quorum = len(m.servers)/2 + 1

	for _, opt := range opts {
		opt(m)
	}

	if m.driftFactor < 0 || m.driftFactor > 0.1 {
		return nil, invalidParameter("driftFactor must be in [0, 0.1], got %v", m.driftFactor)
	}
	if m.retryDelay < 0 {
		return nil, invalidParameter("retryDelay must be non-negative, got %s", m.retryDelay)
	}
	if m.retryJitter < 0 {
		return nil, invalidParameter("retryJitter must be non-negative, got %s", m.retryJitter)
	}
	if m.maxRetryAttempts < 0 {
		return nil, invalidParameter("maxRetryAttempts must be non-negative, got %d", m.maxRetryAttempts)
	}
	if m.tokenLength <= 0 {
		return nil, invalidParameter("tokenLength must be positive, got %d", m.tokenLength)
	}

	return m, nil
}

// Quorum returns the number of servers that must agree for an acquisition
// or extension to succeed.
func (m *Manager) Quorum() int {
	return m.quorum
}

// Metrics returns the Metrics instance attached via WithMetrics, or nil if
// none was configured.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// Acquire attempts to acquire a lock over the canonicalized key vector.
// It returns a Handle on success, or (nil, nil) if no majority was reached
// within the configured retries — acquisition failure is not an error.
// Parameter validation failures are returned immediately, unretried.
func (m *Manager) Acquire(ctx context.Context, keys []string, ttl time.Duration) (*Handle, error) {
	if ttl <= 0 {
		return nil, invalidParameter("ttl must be positive, got %s", ttl)
	}

	canonical, removed, err := canonicalizeKeys(keys)
	if err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		m.logger.Warn().Strs("removed", removed).Msg("duplicate keys removed during canonicalization")
	}

	ttlMs := ttl.Milliseconds()

	for attempt := 0; attempt <= m.maxRetryAttempts; attempt++ {
		token, err := generateToken(m.tokenLength)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		successCount := m.fanOut("acquire", func(sc ServerClient) (bool, error) {
			return sc.Acquire(ctx, canonical, token, ttl)
		})
		elapsed := time.Since(start)
		m.observeLatency("acquire", elapsed)

		d := evaluate(successCount, m.quorum, ttlMs, elapsed.Milliseconds(), m.driftFactor)

		if d.accepted {
			handle := newHandle(m, canonical, token, ttl, time.Now().Add(time.Duration(d.effectiveValidityMs)*time.Millisecond))
			m.recordAcquire("success")
			if m.metrics != nil {
				m.metrics.HandlesActive.Inc()
			}
			m.logger.Info().
				Strs("keys", canonical).
				Int("attempt", attempt).
				Int64("effectiveValidityMs", d.effectiveValidityMs).
				Msg("lock acquired")
			return handle, nil
		}

		// Best-effort cleanup of any partial grant; per-server errors ignored.
		m.fanOut("release", func(sc ServerClient) (bool, error) {
			return sc.Release(ctx, canonical, token)
		})

		result := "quorum_failed"
		if d.reason == reasonTimingViolation {
			result = "timing_failed"
		}
		m.recordAcquire(result)
		m.logger.Warn().
			Str("reason", string(d.reason)).
			Int("attempt", attempt).
			Int("successCount", successCount).
			Msg("acquisition rejected")

		if attempt < m.maxRetryAttempts {
			m.sleepRetry(ctx)
		}
	}

	return nil, nil
}

func (m *Manager) sleepRetry(ctx context.Context) {
	wait := m.retryDelay
	if m.retryJitter > 0 {
		wait += time.Duration(rand.Int64N(int64(m.retryJitter) + 1))
	}
	if wait <= 0 {
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Extend issues EXTEND to every server for an arbitrary key vector and
// token, independent of any Handle. It exists so a caller holding only a
// key and a token — rather than the Handle that produced them — can still
// perform the operation described in §4.6; Handle.Extend skips this wrapper
// and calls the same extendInternal fan-out directly. Returns true only if
// at least quorum servers reported success.
func (m *Manager) Extend(ctx context.Context, keys []string, token string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, invalidParameter("ttl must be positive, got %s", ttl)
	}
	canonical, removed, err := canonicalizeKeys(keys)
	if err != nil {
		return false, err
	}
	if len(removed) > 0 {
		m.logger.Warn().Strs("removed", removed).Msg("duplicate keys removed during canonicalization")
	}
	return m.extendInternal(ctx, canonical, token, ttl), nil
}

// releaseInternal issues RELEASE to every server and reports true if at
// least one server deleted the key(s). It never returns an error: per-server
// failures are demoted to false by the fan-out.
func (m *Manager) releaseInternal(ctx context.Context, keys []string, token string) bool {
	start := time.Now()
	count := m.fanOut("release", func(sc ServerClient) (bool, error) {
		return sc.Release(ctx, keys, token)
	})
	m.observeLatency("release", time.Since(start))
	success := count >= 1
	if success {
		m.recordRelease("success")
	} else {
		m.recordRelease("failed")
	}
	return success
}

// extendInternal issues EXTEND to every server and reports true only if at
// least quorum servers reported success.
func (m *Manager) extendInternal(ctx context.Context, keys []string, token string, ttl time.Duration) bool {
	start := time.Now()
	count := m.fanOut("extend", func(sc ServerClient) (bool, error) {
		return sc.Extend(ctx, keys, token, ttl)
	})
	m.observeLatency("extend", time.Since(start))
	success := count >= m.quorum
	if success {
		m.recordExtend("success")
	} else {
		m.recordExtend("failed")
	}
	return success
}

// fanOut runs op against every server concurrently, waits for all of them
// (allSettled semantics: no short-circuit on the first failure or panic),
// and returns the number of servers that reported true.
func (m *Manager) fanOut(op string, run func(ServerClient) (bool, error)) int {
	n := len(m.servers)
	results := make([]bool, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i, sc := range m.servers {
		go func(i int, sc ServerClient) {
			defer wg.Done()
			ok, err := safeRun(sc, run)
			if err != nil {
				err = &serverScriptError{serverIndex: i, cause: err}
				m.logger.Debug().Err(err).Int("server", i).Str("op", op).Msg("server script failed")
				if m.metrics != nil {
					m.metrics.ServerErrorsTotal.WithLabelValues(op).Inc()
				}
				return
			}
			results[i] = ok
		}(i, sc)
	}
	wg.Wait()

	count := 0
	for _, ok := range results {
		if ok {
			count++
		}
	}
	return count
}

// safeRun demotes a panicking server call to a plain error so a single
// misbehaving ServerClient cannot take down a fan-out for the others.
func safeRun(sc ServerClient, run func(ServerClient) (bool, error)) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = panicError{r}
		}
	}()
	return run(sc)
}

type panicError struct{ v interface{} }

func (p panicError) Error() string { return "panic in server client" }

func (m *Manager) observeLatency(op string, elapsed time.Duration) {
	if m.metrics != nil {
		m.metrics.OpLatencySeconds.WithLabelValues(op).Observe(elapsed.Seconds())
	}
}

func (m *Manager) recordAcquire(result string) {
	if m.metrics != nil {
		m.metrics.AcquireTotal.WithLabelValues(result).Inc()
	}
}

func (m *Manager) recordRelease(result string) {
	if m.metrics != nil {
		m.metrics.ReleaseTotal.WithLabelValues(result).Inc()
	}
}

func (m *Manager) recordExtend(result string) {
	if m.metrics != nil {
		m.metrics.ExtendTotal.WithLabelValues(result).Inc()
	}
}
