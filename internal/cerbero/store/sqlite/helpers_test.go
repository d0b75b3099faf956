package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	dbpkg "github.com/nferreyra/cerbero/internal/db"
)

var testDBSeq atomic.Int64

// openTestDB opens a fresh in-memory database with the full schema applied.
// Shared cache keeps the memory database alive across the pool's connections.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:test_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", testDBSeq.Add(1))
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, dbpkg.Migrate(context.Background(), db))
	return db
}

func newTestWriter(t *testing.T, db *sql.DB) *dbpkg.Worker {
	t.Helper()
	w := dbpkg.NewWorker(db)
	t.Cleanup(w.Close)
	return w
}

func nowMs() int64 { return time.Now().UnixMilli() }

func insertArea(t *testing.T, db *sql.DB, name string) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO areas(name, created_at_ms, updated_at_ms) VALUES (?, ?, ?);`,
		name, nowMs(), nowMs())
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func insertPerson(t *testing.T, db *sql.DB, externalID, name, category string, active bool, areaID any) int64 {
	t.Helper()
	activeInt := 0
	if active {
		activeInt = 1
	}
	res, err := db.Exec(`
INSERT INTO people(external_id, name, category, is_active, area_id, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?);`,
		externalID, name, category, activeInt, areaID, nowMs(), nowMs())
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func insertProvider(t *testing.T, db *sql.DB, externalID string, active bool) int64 {
	t.Helper()
	activeInt := 0
	if active {
		activeInt = 1
	}
	res, err := db.Exec(`INSERT INTO providers(external_id, is_active, created_at_ms, updated_at_ms) VALUES (?, ?, ?, ?);`,
		externalID, activeInt, nowMs(), nowMs())
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func insertDocument(t *testing.T, db *sql.DB, providerID int64, uploadedAt time.Time, expiresAt *time.Time) {
	t.Helper()
	var expMs any
	if expiresAt != nil {
		expMs = expiresAt.UnixMilli()
	}
	_, err := db.Exec(`
INSERT INTO provider_docs(provider_id, upload_date_ms, expiration_date_ms, grants_vehicle_access)
VALUES (?, ?, ?, 0);`,
		providerID, uploadedAt.UnixMilli(), expMs)
	require.NoError(t, err)
}

func insertUser(t *testing.T, db *sql.DB, username, role string) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO users(username, role, created_at_ms) VALUES (?, ?, ?);`,
		username, role, nowMs())
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}
