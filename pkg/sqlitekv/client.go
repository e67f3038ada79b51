// Package sqlitekv implements redlock.ServerClient against a local SQLite
// database. It requires no external services, which makes it the default
// backend for redlock's own test suite and for local runs of the benchmark
// binary — one file per simulated independent server.
package sqlitekv

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lockforge/redlock/pkg/redlock"
)

var _ redlock.ServerClient = (*Client)(nil)

// Config configures how a Client opens its database file.
type Config struct {
	// Path is the sqlite3 database file path. Use ":memory:" for a private
	// in-memory database, but note each connection to ":memory:" is its own
	// database — pass MaxOpenConns: 1 when doing so.
	Path string

	BusyTimeout  time.Duration
	MaxOpenConns int
}

// Client is a redlock.ServerClient backed by a single SQLite database.
type Client struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at cfg.Path, applies WAL
// pragmas, and runs the schema migration.
func Open(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlitekv: path is required")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 10
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	c := &Client{db: db}
	if err := c.applyPragmas(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := c.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) applyPragmas(ctx context.Context) error {
	for _, p := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=MEMORY;",
	} {
		if _, err := c.db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("sqlitekv: apply pragma failed (%s): %w", p, err)
		}
	}
	return nil
}

// Close closes the underlying database handle.
func (c *Client) Close() error {
	return c.db.Close()
}

// Acquire implements redlock.ServerClient.
func (c *Client) Acquire(ctx context.Context, keys []string, token string, ttl time.Duration) (bool, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixNano()
	for _, k := range keys {
		var expiresAt int64
		err := tx.QueryRowContext(ctx, `SELECT expires_at_ns FROM redlock_entries WHERE key = ?`, k).Scan(&expiresAt)
		if err == nil {
			if expiresAt > now {
				return false, nil
			}
		} else if err != sql.ErrNoRows {
			return false, err
		}
	}

	expiresAt := time.Now().Add(ttl).UnixNano()
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO redlock_entries(key, token, expires_at_ns) VALUES(?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET token = excluded.token, expires_at_ns = excluded.expires_at_ns
		`, k, token, expiresAt); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// Release implements redlock.ServerClient.
func (c *Client) Release(ctx context.Context, keys []string, token string) (bool, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixNano()
	deleted := 0
	for _, k := range keys {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM redlock_entries WHERE key = ? AND token = ? AND expires_at_ns > ?
		`, k, token, now)
		if err != nil {
			return false, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, err
		}
		deleted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return deleted >= 1, nil
}

// Extend implements redlock.ServerClient.
func (c *Client) Extend(ctx context.Context, keys []string, token string, ttl time.Duration) (bool, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixNano()
	for _, k := range keys {
		var tok string
		var expiresAt int64
		err := tx.QueryRowContext(ctx, `SELECT token, expires_at_ns FROM redlock_entries WHERE key = ?`, k).Scan(&tok, &expiresAt)
		if err == sql.ErrNoRows {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if tok != token || expiresAt <= now {
			return false, nil
		}
	}

	newExpiresAt := time.Now().Add(ttl).UnixNano()
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, `UPDATE redlock_entries SET expires_at_ns = ? WHERE key = ?`, newExpiresAt, k); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
