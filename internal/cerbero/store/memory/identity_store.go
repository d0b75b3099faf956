package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/nferreyra/cerbero/internal/cerbero/store"
)

// IdentityStore is an in-memory identity registry for tests and dev
// environments. Records are added directly via the Put helpers.
type IdentityStore struct {
	mu        sync.RWMutex
	people    map[string]store.PersonRecord   // by external id
	providers map[string]store.ProviderRecord // by external id
	docs      map[int64][]store.ComplianceDocument
}

func NewIdentityStore() *IdentityStore {
	return &IdentityStore{
		people:    make(map[string]store.PersonRecord),
		providers: make(map[string]store.ProviderRecord),
		docs:      make(map[int64][]store.ComplianceDocument),
	}
}

func (s *IdentityStore) PutPerson(p store.PersonRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.people[p.ExternalID] = p
}

func (s *IdentityStore) PutProvider(externalID string, p store.ProviderRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[externalID] = p
}

func (s *IdentityStore) PutDocument(providerID int64, d store.ComplianceDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[providerID] = append(s.docs[providerID], d)
}

func (s *IdentityStore) GetPersonByExternalID(_ context.Context, externalID string) (*store.PersonRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.people[strings.TrimSpace(externalID)]
	if !ok {
		return nil, nil
	}
	cp := p
	return &cp, nil
}

func (s *IdentityStore) GetProviderByExternalID(_ context.Context, externalID string) (*store.ProviderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.providers[strings.TrimSpace(externalID)]
	if !ok {
		return nil, nil
	}
	cp := p
	return &cp, nil
}

func (s *IdentityStore) GetLatestDocument(_ context.Context, providerID int64) (*store.ComplianceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.docs[providerID]
	if len(docs) == 0 {
		return nil, nil
	}
	sorted := make([]store.ComplianceDocument, len(docs))
	copy(sorted, docs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UploadedAt.After(sorted[j].UploadedAt) })
	latest := sorted[0]
	return &latest, nil
}
