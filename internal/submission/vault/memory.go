package vault

import (
	"context"
	"sync"

	"supplierflow/internal/submission/models"
	id "supplierflow/pkg/domain"
	"supplierflow/pkg/platform/sentinel"
)

// InMemory is a process-local Store for tests and single-node runs.
type InMemory struct {
	mu      sync.RWMutex
	secrets map[id.SubmissionID]models.BankSecrets
}

func NewInMemory() *InMemory {
	return &InMemory{secrets: make(map[id.SubmissionID]models.BankSecrets)}
}

func (s *InMemory) Put(_ context.Context, subID id.SubmissionID, secrets models.BankSecrets) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[subID] = secrets
	return nil
}

func (s *InMemory) Get(_ context.Context, subID id.SubmissionID) (models.BankSecrets, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	secrets, ok := s.secrets[subID]
	if !ok {
		return models.BankSecrets{}, sentinel.ErrNotFound
	}
	return secrets, nil
}

func (s *InMemory) Delete(_ context.Context, subID id.SubmissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, subID)
	return nil
}

// Len reports how many submissions currently hold secrets.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.secrets)
}
