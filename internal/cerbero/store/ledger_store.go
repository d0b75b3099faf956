package store

import (
	"context"

	"github.com/nferreyra/cerbero/internal/cerbero/types"
)

// OpenEntryParams carries one admitted entry scan into the ledger.
// EntryTime is the canonical localized stamp produced by the shared clock.
type OpenEntryParams struct {
	PersonID   int64
	VehicleID  *int64
	EntryTime  string
	Notes      string
	OperatorID int64
}

// LedgerStore is the entry/exit ledger. At most one row per person may have
// a null exit timestamp ("currently inside"); the sqlite implementation
// enforces this with a partial unique index, so OpenEntry reports
// created=false — not an error — when an open row already exists.
// Rows are never deleted by the core.
type LedgerStore interface {
	OpenEntry(ctx context.Context, p OpenEntryParams) (created bool, err error)

	// CloseOpenEntry stamps the exit time on the person's open row.
	// closed=false (no error) when there is nothing to close — an expected
	// operator scenario, surfaced as a warning by callers.
	CloseOpenEntry(ctx context.Context, personID int64, exitTime, notes string) (closed bool, err error)

	HasOpenEntry(ctx context.Context, personID int64) (bool, error)

	// ListOpenEntries returns everyone currently inside, newest first.
	ListOpenEntries(ctx context.Context) ([]types.InsideEntry, error)
}
