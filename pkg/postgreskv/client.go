// Package postgreskv implements redlock.ServerClient against a PostgreSQL
// database, using a single transaction per operation so a multi-key
// acquire/release/extend is observed atomically by that server.
package postgreskv

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lockforge/redlock/pkg/redlock"
)

var _ redlock.ServerClient = (*Client)(nil)

// Client is a redlock.ServerClient backed by a *pgxpool.Pool.
type Client struct {
	pool *pgxpool.Pool
}

// New wraps an existing pgx pool. Call Bootstrap once before first use to
// create the backing table.
func New(pool *pgxpool.Pool) *Client {
	return &Client{pool: pool}
}

// Bootstrap creates the redlock_entries table if it does not already exist.
func (c *Client) Bootstrap(ctx context.Context) error {
	_, err := c.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS redlock_entries (
	key TEXT PRIMARY KEY,
	token TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);
`)
	return err
}

// Acquire implements redlock.ServerClient.
func (c *Client) Acquire(ctx context.Context, keys []string, token string, ttl time.Duration) (bool, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	expiresAt := time.Now().Add(ttl)
	for _, k := range keys {
		// Atomically insert the key, or replace it in place if the
		// existing row has already expired; RETURNING is absent (no
		// rows) exactly when a live, unexpired row blocks the grant.
		var returnedKey string
		err := tx.QueryRow(ctx, `
			INSERT INTO redlock_entries (key, token, expires_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE
			SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at
			WHERE redlock_entries.expires_at < NOW()
			RETURNING key
		`, k, token, expiresAt).Scan(&returnedKey)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return false, nil
			}
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Release implements redlock.ServerClient.
func (c *Client) Release(ctx context.Context, keys []string, token string) (bool, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	deleted := int64(0)
	for _, k := range keys {
		tag, err := tx.Exec(ctx, `
			DELETE FROM redlock_entries WHERE key = $1 AND token = $2 AND expires_at > NOW()
		`, k, token)
		if err != nil {
			return false, err
		}
		deleted += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return deleted >= 1, nil
}

// Extend implements redlock.ServerClient.
func (c *Client) Extend(ctx context.Context, keys []string, token string, ttl time.Duration) (bool, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, k := range keys {
		var existingToken string
		err := tx.QueryRow(ctx, `
			SELECT token FROM redlock_entries WHERE key = $1 AND expires_at > NOW()
		`, k).Scan(&existingToken)
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if existingToken != token {
			return false, nil
		}
	}

	newExpiresAt := time.Now().Add(ttl)
	for _, k := range keys {
		if _, err := tx.Exec(ctx, `
			UPDATE redlock_entries SET expires_at = $1 WHERE key = $2
		`, newExpiresAt, k); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}
