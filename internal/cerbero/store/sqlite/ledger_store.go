package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	dbpkg "github.com/nferreyra/cerbero/internal/db"

	"github.com/nferreyra/cerbero/internal/cerbero/store"
	"github.com/nferreyra/cerbero/internal/cerbero/types"
)

// LedgerStore persists the entry/exit ledger. All writes go through the
// serialized writer; the idx_access_logs_open partial unique index backs the
// one-open-row-per-person rule.
type LedgerStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewLedgerStore(db *sql.DB, writer *dbpkg.Worker) *LedgerStore {
	return &LedgerStore{db: db, writer: writer}
}

func (s *LedgerStore) OpenEntry(ctx context.Context, p store.OpenEntryParams) (bool, error) {
	var vehicleID any
	if p.VehicleID != nil {
		vehicleID = *p.VehicleID
	}

	var operatorID any
	if p.OperatorID != 0 {
		operatorID = p.OperatorID
	}

	created := true
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO access_logs(person_id, vehicle_id, entry_time, exit_time, notes, guard_user_id, created_at)
VALUES (?, ?, ?, NULL, ?, ?, ?);
`, p.PersonID, vehicleID, p.EntryTime, p.Notes, operatorID, p.EntryTime)
		if err != nil {
			// The partial unique index rejects a second open row for the
			// person. That is the invariant holding, not a failure.
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				created = false
				return nil
			}
			return fmt.Errorf("OpenEntry insert: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (s *LedgerStore) CloseOpenEntry(ctx context.Context, personID int64, exitTime, notes string) (bool, error) {
	notes = strings.TrimSpace(notes)

	closed := false
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE access_logs
SET exit_time = ?,
    notes     = CASE WHEN ? = '' THEN notes ELSE ? END
WHERE id = (
  SELECT id FROM access_logs
  WHERE person_id = ? AND exit_time IS NULL
  ORDER BY entry_time DESC, id DESC
  LIMIT 1
);
`, exitTime, notes, notes, personID)
		if err != nil {
			return fmt.Errorf("CloseOpenEntry update: %w", err)
		}
		n, _ := res.RowsAffected()
		closed = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return closed, nil
}

func (s *LedgerStore) HasOpenEntry(ctx context.Context, personID int64) (bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
SELECT id FROM access_logs WHERE person_id = ? AND exit_time IS NULL LIMIT 1;
`, personID).Scan(&id)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("HasOpenEntry query: %w", err)
	}
	return true, nil
}

func (s *LedgerStore) ListOpenEntries(ctx context.Context) ([]types.InsideEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT l.person_id, p.external_id, p.name, l.entry_time, l.notes
FROM access_logs l
JOIN people p ON p.id = l.person_id
WHERE l.exit_time IS NULL
ORDER BY l.entry_time DESC, l.id DESC;
`)
	if err != nil {
		return nil, fmt.Errorf("ListOpenEntries query: %w", err)
	}
	defer rows.Close()

	var out []types.InsideEntry
	for rows.Next() {
		var (
			e     types.InsideEntry
			notes sql.NullString
		)
		if err := rows.Scan(&e.PersonID, &e.ExternalID, &e.Name, &e.EntryTime, &notes); err != nil {
			return nil, fmt.Errorf("ListOpenEntries scan: %w", err)
		}
		e.Notes = notes.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListOpenEntries rows: %w", err)
	}
	return out, nil
}
