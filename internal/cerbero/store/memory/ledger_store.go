package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/nferreyra/cerbero/internal/cerbero/store"
	"github.com/nferreyra/cerbero/internal/cerbero/types"
)

// entry mirrors one access_logs row.
type entry struct {
	id         int64
	personID   int64
	vehicleID  *int64
	entryTime  string
	exitTime   string // "" = still open
	notes      string
	operatorID int64
}

// LedgerStore is an in-memory access ledger for tests and dev environments.
// It enforces the same one-open-row-per-person rule as the sqlite partial
// unique index.
type LedgerStore struct {
	mu      sync.Mutex
	nextID  int64
	entries []entry

	// test lookups for /v1/inside output
	names       map[int64]string
	externalIDs map[int64]string
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		nextID:      1,
		names:       make(map[int64]string),
		externalIDs: make(map[int64]string),
	}
}

// PutPersonInfo registers display data used by ListOpenEntries.
func (s *LedgerStore) PutPersonInfo(personID int64, externalID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[personID] = name
	s.externalIDs[personID] = externalID
}

func (s *LedgerStore) OpenEntry(_ context.Context, p store.OpenEntryParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.personID == p.PersonID && e.exitTime == "" {
			return false, nil
		}
	}

	s.entries = append(s.entries, entry{
		id:         s.nextID,
		personID:   p.PersonID,
		vehicleID:  p.VehicleID,
		entryTime:  p.EntryTime,
		notes:      p.Notes,
		operatorID: p.OperatorID,
	})
	s.nextID++
	return true, nil
}

func (s *LedgerStore) CloseOpenEntry(_ context.Context, personID int64, exitTime, notes string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Most recent open row for the person.
	idx := -1
	for i, e := range s.entries {
		if e.personID == personID && e.exitTime == "" {
			if idx == -1 || s.entries[i].entryTime >= s.entries[idx].entryTime {
				idx = i
			}
		}
	}
	if idx == -1 {
		return false, nil
	}

	s.entries[idx].exitTime = exitTime
	if strings.TrimSpace(notes) != "" {
		s.entries[idx].notes = notes
	}
	return true, nil
}

func (s *LedgerStore) HasOpenEntry(_ context.Context, personID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.personID == personID && e.exitTime == "" {
			return true, nil
		}
	}
	return false, nil
}

func (s *LedgerStore) ListOpenEntries(_ context.Context) ([]types.InsideEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.InsideEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.exitTime != "" {
			continue
		}
		out = append(out, types.InsideEntry{
			PersonID:   e.personID,
			ExternalID: s.externalIDs[e.personID],
			Name:       s.names[e.personID],
			EntryTime:  e.entryTime,
			Notes:      e.notes,
		})
	}
	return out, nil
}

// Row is a test-inspection view of one ledger row.
type Row struct {
	PersonID   int64
	EntryTime  string
	ExitTime   string
	Notes      string
	OperatorID int64
}

// Rows returns a copy of all ledger rows in insert order. Test-only helper.
func (s *LedgerStore) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Row, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, Row{
			PersonID:   e.personID,
			EntryTime:  e.entryTime,
			ExitTime:   e.exitTime,
			Notes:      e.notes,
			OperatorID: e.operatorID,
		})
	}
	return out
}

// OpenCount returns how many open rows exist for the person. Test-only helper.
func (s *LedgerStore) OpenCount(personID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.personID == personID && e.exitTime == "" {
			n++
		}
	}
	return n
}
