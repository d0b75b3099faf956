package service

import (
	"context"
	"sync"

	"github.com/nferreyra/cerbero/internal/cerbero/store"
	"github.com/nferreyra/cerbero/internal/logging"
)

// OperatorResolver yields the user id that scan-triggered ledger writes are
// attributed to.  A configured id wins outright; otherwise the first
// resolution from the users table is cached for the life of the process
// (startup-only invalidation).  Explicit injected state, not a package
// global, so tests get fresh instances.
type OperatorResolver struct {
	store      store.OperatorStore
	configured int64
	logger     logging.Logger

	mu       sync.Mutex
	cached   int64
	resolved bool
}

func NewOperatorResolver(st store.OperatorStore, configuredID int64, logger logging.Logger) *OperatorResolver {
	return &OperatorResolver{
		store:      st,
		configured: configuredID,
		logger:     logger,
	}
}

// Resolve returns the operator id, or 0 when none could be determined.
// Zero is not an error: the ledger row is written unattributed rather than
// dropped.
func (r *OperatorResolver) Resolve(ctx context.Context) int64 {
	if r.configured != 0 {
		return r.configured
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved {
		return r.cached
	}

	id, err := r.store.ResolveScanOperator(ctx)
	if err != nil {
		r.logger.Warn(ctx, "scan operator resolution failed", "err", err)
		return 0
	}
	if id == 0 {
		r.logger.Warn(ctx, "no users found for scan operator attribution")
		return 0
	}

	r.cached = id
	r.resolved = true
	return id
}
