package redlock

import (
	"context"
	"time"
)

// withLockConfig holds the optional parameters of WithLock.
type withLockConfig struct {
	extensionThreshold time.Duration
}

// WithLockOption configures a single WithLock call.
type WithLockOption func(*withLockConfig)

// WithExtensionThreshold enables auto-extension on the acquired handle,
// firing threshold before its expiration.
func WithExtensionThreshold(threshold time.Duration) WithLockOption {
	return func(c *withLockConfig) { c.extensionThreshold = threshold }
}

// WithLock acquires a lock over keys, runs fn with the held handle, and
// guarantees the lock is released exactly once on every exit path —
// success, error, or a canceled context. If acquisition fails,
// LockAcquisitionFailedError is returned and fn is never invoked. fn's
// error, if any, is returned unmodified; a release failure during the
// epilogue is swallowed and logged, never masking fn's error.
func (m *Manager) WithLock(
	ctx context.Context,
	keys []string,
	ttl time.Duration,
	fn func(ctx context.Context, h *Handle) (interface{}, error),
	opts ...WithLockOption,
) (interface{}, error) {
	cfg := &withLockConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	originalKeys := append([]string(nil), keys...)

	handle, err := m.Acquire(ctx, keys, ttl)
	if err != nil {
		return nil, err
	}
	if handle == nil {
		return nil, &LockAcquisitionFailedError{Keys: originalKeys}
	}

	if cfg.extensionThreshold > 0 {
		if startErr := handle.StartAutoExtension(ctx, cfg.extensionThreshold); startErr != nil {
			m.logger.Warn().Err(startErr).Msg("failed to start auto-extension")
		}
	}

	result, fnErr := fn(ctx, handle)

	handle.StopAutoExtension()
	if _, releaseErr := handle.Release(ctx); releaseErr != nil {
		m.logger.Warn().Err(releaseErr).Msg("release during with_lock epilogue failed")
	}

	return result, fnErr
}
