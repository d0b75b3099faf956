package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

type OperatorStore struct {
	db *sql.DB
}

func NewOperatorStore(db *sql.DB) *OperatorStore {
	return &OperatorStore{db: db}
}

// ResolveScanOperator picks the user id scans are attributed to: the first
// guard-role user, falling back to the first user of any role.  Returns 0
// when the users table is empty.
func (s *OperatorStore) ResolveScanOperator(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE role = 'guard' ORDER BY id ASC LIMIT 1;`).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("ResolveScanOperator guard query: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM users ORDER BY id ASC LIMIT 1;`).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ResolveScanOperator fallback query: %w", err)
	}
	return id, nil
}
