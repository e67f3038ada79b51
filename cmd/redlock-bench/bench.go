package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/lockforge/redlock/internal/metrics"
	"github.com/lockforge/redlock/pkg/redlock"
)

// benchRequest describes a single contention-test run: clientCount
// goroutines repeatedly contend for the same resource via WithLock until
// durationMs elapses.
type benchRequest struct {
	Resource   string `json:"resource" binding:"required"`
	Clients    int    `json:"clients"`
	DurationMs int64  `json:"duration_ms"`
	TTLMs      int64  `json:"ttl_ms"`
}

// benchResult summarizes one contention-test run.
type benchResult struct {
	Resource        string `json:"resource"`
	Clients         int    `json:"clients"`
	DurationMs      int64  `json:"duration_ms"`
	Acquisitions    int64  `json:"acquisitions"`
	AcquireFailures int64  `json:"acquire_failures"`
	CriticalSection int64  `json:"critical_section_runs"`
	AutoExtended    int64  `json:"auto_extended"`
	Released        int64  `json:"released"`
}

// maxHold caps how long a single critical section holds the lock, so a
// large ttl_ms in the request cannot make one bench run block forever.
const maxHold = 2 * time.Second

// runBench drives clientCount goroutines contending for resource via
// m.WithLock for the given duration, and reports how contention resolved.
// Each critical section holds the lock for close to its own ttl (at most
// maxHold), and auto-extension is armed so that a renewal falls due about
// halfway through that hold (at half the ttl when the ttl is not capped),
// exercising the same renewal path a long-running caller would rely on.
func runBench(ctx context.Context, m *redlock.Manager, logger zerolog.Logger, req benchRequest) benchResult {
	deadline := time.Now().Add(time.Duration(req.DurationMs) * time.Millisecond)
	ttl := time.Duration(req.TTLMs) * time.Millisecond

	hold := ttl
	if hold > maxHold {
		hold = maxHold
	}
	threshold := ttl - hold/2

	var acquisitions, acquireFailures, criticalSectionRuns int64

	metrics.SetBenchClientsActive(float64(req.Clients))
	defer metrics.SetBenchClientsActive(0)

	before := lockMetricSnapshot(m)

	var wg sync.WaitGroup
	wg.Add(req.Clients)
	for i := 0; i < req.Clients; i++ {
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) {
				_, err := m.WithLock(ctx, []string{req.Resource}, ttl,
					func(ctx context.Context, h *redlock.Handle) (interface{}, error) {
						atomic.AddInt64(&criticalSectionRuns, 1)
						time.Sleep(hold)
						return nil, nil
					},
					redlock.WithExtensionThreshold(threshold))

				var acqErr *redlock.LockAcquisitionFailedError
				switch {
				case err == nil:
					atomic.AddInt64(&acquisitions, 1)
					metrics.RecordBenchRun("acquired")
				case isAcquisitionFailure(err, &acqErr):
					atomic.AddInt64(&acquireFailures, 1)
					metrics.RecordBenchRun("contended")
				default:
					logger.Warn().Err(err).Msg("unexpected error during bench run")
					metrics.RecordBenchRun("error")
				}
			}
		}()
	}
	wg.Wait()

	after := lockMetricSnapshot(m)

	return benchResult{
		Resource:        req.Resource,
		Clients:         req.Clients,
		DurationMs:      req.DurationMs,
		Acquisitions:    atomic.LoadInt64(&acquisitions),
		AcquireFailures: atomic.LoadInt64(&acquireFailures),
		CriticalSection: atomic.LoadInt64(&criticalSectionRuns),
		AutoExtended:    after.autoExtended - before.autoExtended,
		Released:        after.released - before.released,
	}
}

// lockMetricsSnapshot captures the running totals of the two counters that
// runBench reports deltas for.
type lockMetricsSnapshot struct {
	autoExtended int64
	released     int64
}

func lockMetricSnapshot(m *redlock.Manager) lockMetricsSnapshot {
	snap := lockMetricsSnapshot{}
	lm := m.Metrics()
	if lm != nil {
		snap.autoExtended = int64(testutil.ToFloat64(lm.AutoExtensionsTotal.WithLabelValues("success")))
		snap.released = int64(testutil.ToFloat64(lm.ReleaseTotal.WithLabelValues("success")))
	}
	return snap
}

func isAcquisitionFailure(err error, target **redlock.LockAcquisitionFailedError) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*redlock.LockAcquisitionFailedError); ok {
		*target = e
		return true
	}
	return false
}
