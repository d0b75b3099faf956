package memory

import (
	"context"
	"sync"
)

// OperatorStore returns a fixed operator id, set by tests.
type OperatorStore struct {
	mu sync.RWMutex
	id int64
}

func NewOperatorStore(id int64) *OperatorStore {
	return &OperatorStore{id: id}
}

func (s *OperatorStore) SetOperator(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}

func (s *OperatorStore) ResolveScanOperator(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id, nil
}
