package redlock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrHandleReleased is returned by Extend and StartAutoExtension when
// called on a Handle that has already been released.
var ErrHandleReleased = errors.New("redlock: handle already released")

type renewalState int

const (
	renewalIdle renewalState = iota
	renewalScheduled
	renewalRunning
	renewalStopped
)

// Handle represents a single successful lock acquisition. It is safe for
// concurrent use by multiple goroutines.
type Handle struct {
	mu      sync.Mutex
	manager *Manager

	keys  []string
	token string
	ttl   time.Duration

	expiration time.Time
	released   bool

	autoExtend   bool
	threshold    time.Duration
	timer        *time.Timer
	renewalState renewalState
}

func newHandle(m *Manager, keys []string, token string, ttl time.Duration, expiration time.Time) *Handle {
	return &Handle{
		manager:      m,
		keys:         keys,
		token:        token,
		ttl:          ttl,
		expiration:   expiration,
		renewalState: renewalIdle,
	}
}

// ResourceKeys returns the canonicalized key vector this handle locks.
func (h *Handle) ResourceKeys() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.keys...)
}

// IsReleased reports whether Release has been called.
func (h *Handle) IsReleased() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// IsExpired reports whether the handle's local expiration instant has
// passed. This is a local estimate; it does not query the servers.
func (h *Handle) IsExpired() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return time.Now().After(h.expiration)
}

// IsValid reports whether the handle is neither released nor locally
// expired.
func (h *Handle) IsValid() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.released && !time.Now().After(h.expiration)
}

// ExpirationInstant returns the wall-clock instant at which the handle
// currently considers itself expired.
func (h *Handle) ExpirationInstant() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.expiration
}

// Release releases the lock. It is idempotent: calling it after the handle
// is already released is a no-op that returns true. Release is best-effort
// and never returns an error.
func (h *Handle) Release(ctx context.Context) (bool, error) {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return true, nil
	}
	h.released = true
	h.stopAutoExtensionLocked()
	keys := h.keys
	token := h.token
	h.mu.Unlock()

	ok := h.manager.releaseInternal(ctx, keys, token)
	if h.manager.metrics != nil {
		h.manager.metrics.HandlesActive.Dec()
	}
	return ok, nil
}

// Extend renews the lock's TTL. If newTtl is zero, the handle's original
// TTL is reused. Returns false, without error, if the extension lost
// majority; returns ErrHandleReleased if the handle was already released.
func (h *Handle) Extend(ctx context.Context, newTtl time.Duration) (bool, error) {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return false, ErrHandleReleased
	}
	if newTtl == 0 {
		newTtl = h.ttl
	}
	if newTtl <= 0 {
		h.mu.Unlock()
		return false, invalidParameter("newTtl must be positive, got %s", newTtl)
	}
	keys := h.keys
	token := h.token
	h.mu.Unlock()

	ok := h.manager.extendInternal(ctx, keys, token, newTtl)
	if ok {
		h.mu.Lock()
		h.expiration = time.Now().Add(newTtl)
		h.mu.Unlock()
	}
	return ok, nil
}

// StartAutoExtension enables periodic renewal, firing thresholdMs before the
// handle's current expiration. If threshold is zero, a 1-second default is
// used, matching the source's default renewal threshold.
func (h *Handle) StartAutoExtension(ctx context.Context, threshold time.Duration) error {
	if threshold == 0 {
		threshold = time.Second
	}
	if threshold < 0 {
		return invalidParameter("threshold must be positive, got %s", threshold)
	}

	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return ErrHandleReleased
	}
	h.threshold = threshold
	h.autoExtend = true
	h.renewalState = renewalScheduled
	h.mu.Unlock()

	h.scheduleRenewal(ctx)
	return nil
}

// StopAutoExtension cancels any pending renewal timer and disables
// auto-extension. It is called implicitly by Release.
func (h *Handle) StopAutoExtension() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopAutoExtensionLocked()
}

func (h *Handle) stopAutoExtensionLocked() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.autoExtend = false
	h.renewalState = renewalStopped
}

func (h *Handle) scheduleRenewal(ctx context.Context) {
	h.mu.Lock()
	if h.released || h.renewalState != renewalScheduled {
		h.mu.Unlock()
		return
	}
	wait := time.Until(h.expiration) - h.threshold
	if wait <= 0 {
		h.mu.Unlock()
		h.runRenewal(ctx)
		return
	}
	h.timer = time.AfterFunc(wait, func() { h.runRenewal(ctx) })
	h.mu.Unlock()
}

func (h *Handle) runRenewal(ctx context.Context) {
	h.mu.Lock()
	if h.released || h.renewalState != renewalScheduled {
		h.mu.Unlock()
		return
	}
	h.renewalState = renewalRunning
	ttl := h.ttl
	keys := h.keys
	token := h.token
	h.mu.Unlock()

	ok := h.manager.extendInternal(ctx, keys, token, ttl)

	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return
	}
	if ok {
		h.expiration = time.Now().Add(ttl)
		h.renewalState = renewalScheduled
		h.mu.Unlock()
		if h.manager.metrics != nil {
			h.manager.metrics.AutoExtensionsTotal.WithLabelValues("success").Inc()
		}
		h.scheduleRenewal(ctx)
		return
	}
	h.renewalState = renewalStopped
	h.autoExtend = false
	h.mu.Unlock()

	if h.manager.metrics != nil {
		h.manager.metrics.AutoExtensionsTotal.WithLabelValues("failed").Inc()
	}
	h.manager.logger.Warn().Strs("keys", keys).Msg("auto-extension lost majority, lock may no longer be valid")
}
