package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDev inserts a minimal working dataset for local development: one guard
// user, one area, an active employee, and a provider whose latest document
// is close to expiring.  Idempotent.
func SeedDev(ctx context.Context, db *sql.DB) error {
	now := time.Now().UTC()
	nowMs := now.UnixMilli()

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO users(id, username, role, created_at_ms)
VALUES (1, 'guard1', 'guard', ?);`, nowMs); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO areas(id, name, created_at_ms, updated_at_ms)
VALUES (1, 'Warehouse', ?, ?);`, nowMs, nowMs); err != nil {
		return fmt.Errorf("seed areas: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT INTO people(external_id, name, category, is_active, area_id, created_at_ms, updated_at_ms)
VALUES ('12345678', 'Dev Employee', 'employee', 1, 1, ?, ?)
ON CONFLICT(external_id) DO UPDATE SET
  is_active     = 1,
  updated_at_ms = excluded.updated_at_ms;
`, nowMs, nowMs); err != nil {
		return fmt.Errorf("seed employee: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT INTO people(external_id, name, category, is_active, area_id, created_at_ms, updated_at_ms)
VALUES ('87654321', 'Dev Provider', 'provider', 1, 1, ?, ?)
ON CONFLICT(external_id) DO UPDATE SET
  is_active     = 1,
  updated_at_ms = excluded.updated_at_ms;
`, nowMs, nowMs); err != nil {
		return fmt.Errorf("seed provider person: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT INTO providers(id, external_id, is_active, created_at_ms, updated_at_ms)
VALUES (1, '87654321', 1, ?, ?)
ON CONFLICT(external_id) DO UPDATE SET
  is_active     = 1,
  updated_at_ms = excluded.updated_at_ms;
`, nowMs, nowMs); err != nil {
		return fmt.Errorf("seed provider: %w", err)
	}

	// One document expiring in 5 days, so the dev provider exercises the
	// near-expiration advisory path.
	var docCount int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM provider_docs WHERE provider_id = 1;`).Scan(&docCount); err != nil {
		return fmt.Errorf("seed doc count: %w", err)
	}
	if docCount == 0 {
		expMs := now.Add(5 * 24 * time.Hour).UnixMilli()
		if _, err := db.ExecContext(ctx, `
INSERT INTO provider_docs(provider_id, upload_date_ms, expiration_date_ms, grants_vehicle_access)
VALUES (1, ?, ?, 0);`, nowMs, expMs); err != nil {
			return fmt.Errorf("seed provider doc: %w", err)
		}
	}

	return nil
}
