// Package rediskv implements redlock.ServerClient against a single Redis
// server, using Lua scripts so that a multi-key acquire/release/extend is
// observed atomically by that server.
package rediskv

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lockforge/redlock/pkg/redlock"
)

var _ redlock.ServerClient = (*Client)(nil)

// acquireScript sets every key to token with PX=ttlMs, but only if all of
// them are currently absent.
var acquireScript = redis.NewScript(`
for i = 1, #KEYS do
	if redis.call("EXISTS", KEYS[i]) == 1 then
		return 0
	end
end
for i = 1, #KEYS do
	redis.call("SET", KEYS[i], ARGV[1], "PX", ARGV[2])
end
return 1
`)

// releaseScript deletes every key whose current value equals token,
// returning the number of deletions.
var releaseScript = redis.NewScript(`
local deleted = 0
for i = 1, #KEYS do
	if redis.call("GET", KEYS[i]) == ARGV[1] then
		redis.call("DEL", KEYS[i])
		deleted = deleted + 1
	end
end
return deleted
`)

// extendScript resets PEXPIRE on every key to ttlMs, but only if all of
// them currently hold token.
var extendScript = redis.NewScript(`
for i = 1, #KEYS do
	if redis.call("GET", KEYS[i]) ~= ARGV[1] then
		return 0
	end
end
for i = 1, #KEYS do
	redis.call("PEXPIRE", KEYS[i], ARGV[2])
end
return 1
`)

// Client is a redlock.ServerClient backed by a single *redis.Client.
type Client struct {
	rdb *redis.Client
}

// New wraps an existing go-redis client.
func New(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Acquire implements redlock.ServerClient.
func (c *Client) Acquire(ctx context.Context, keys []string, token string, ttl time.Duration) (bool, error) {
	result, err := acquireScript.Run(ctx, c.rdb, keys, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

// Release implements redlock.ServerClient.
func (c *Client) Release(ctx context.Context, keys []string, token string) (bool, error) {
	result, err := releaseScript.Run(ctx, c.rdb, keys, token).Int64()
	if err != nil {
		return false, err
	}
	return result >= 1, nil
}

// Extend implements redlock.ServerClient.
func (c *Client) Extend(ctx context.Context, keys []string, token string, ttl time.Duration) (bool, error) {
	result, err := extendScript.Run(ctx, c.rdb, keys, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}
