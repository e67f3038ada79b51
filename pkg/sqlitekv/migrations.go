package sqlitekv

import (
	"context"
	"database/sql"
	"fmt"
)

func (c *Client) migrate(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_ns INTEGER NOT NULL
);
`); err != nil {
		return err
	}

	const latest = 1

	cur, err := currentVersion(ctx, c.db)
	if err != nil {
		return err
	}
	for v := cur + 1; v <= latest; v++ {
		if err := applyMigration(ctx, c.db, v); err != nil {
			return err
		}
	}
	return nil
}

func currentVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations;`).Scan(&v); err != nil {
		return 0, err
	}
	if !v.Valid {
		return 0, nil
	}
	return int(v.Int64), nil
}

func applyMigration(ctx context.Context, db *sql.DB, version int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	switch version {
	case 1:
		if _, err := tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS redlock_entries (
  key TEXT PRIMARY KEY,
  token TEXT NOT NULL,
  expires_at_ns INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_redlock_entries_expiry ON redlock_entries(expires_at_ns);
`); err != nil {
			return fmt.Errorf("migration v1 failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown migration version: %d", version)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, applied_at_ns) VALUES(?, strftime('%s','now')*1000000000);`, version); err != nil {
		return err
	}
	return tx.Commit()
}
