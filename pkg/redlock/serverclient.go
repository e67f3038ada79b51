package redlock

import (
	"context"
	"time"
)

// ServerClient is the contract each of the N independent backend servers
// must satisfy. Implementations execute the ACQUIRE/RELEASE/EXTEND scripts
// atomically over the whole key vector: a server either applies the
// operation to every key or to none.
//
// A transport or script error must be returned as (false, err); it is never
// the fan-out's job to distinguish a returned false from a returned error —
// both are treated as "this server said no".
type ServerClient interface {
	// Acquire sets every key in keys to token with the given TTL, but only
	// if all of them are currently absent. Reports whether the grant
	// succeeded.
	Acquire(ctx context.Context, keys []string, token string, ttl time.Duration) (bool, error)

	// Release deletes every key in keys whose current value equals token.
	// Reports whether at least one key was deleted.
	Release(ctx context.Context, keys []string, token string) (bool, error)

	// Extend resets the TTL of every key in keys to ttl, but only if all of
	// them currently hold token. Reports whether the extension succeeded.
	Extend(ctx context.Context, keys []string, token string, ttl time.Duration) (bool, error)
}
