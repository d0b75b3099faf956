package memory

import (
	"context"
	"sync"
)

// SettingsStore is an in-memory key/value settings table.
type SettingsStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewSettingsStore() *SettingsStore {
	return &SettingsStore{data: make(map[string]string)}
}

func (s *SettingsStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *SettingsStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[key], nil
}
