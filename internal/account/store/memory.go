package store

import (
	"context"
	"sync"

	"penny/internal/account"
	"penny/pkg/platform/sentinel"
)

// InMemory is a process-local account store for development and tests.
type InMemory struct {
	mu       sync.RWMutex
	accounts map[string]account.Record
}

func NewInMemory() *InMemory {
	return &InMemory{accounts: make(map[string]account.Record)}
}

func (s *InMemory) CreateIfAbsent(_ context.Context, record account.Record) (account.Record, account.CreateOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.accounts[record.Email]; ok {
		return existing, account.AlreadyExisted, nil
	}
	s.accounts[record.Email] = record
	return record, account.Created, nil
}

func (s *InMemory) Get(_ context.Context, email string) (account.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.accounts[email]
	if !ok {
		return account.Record{}, sentinel.ErrNotFound
	}
	return record, nil
}

// Count returns the number of stored accounts.
func (s *InMemory) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}
