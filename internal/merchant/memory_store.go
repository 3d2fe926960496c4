package merchant

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu     sync.RWMutex
	record *Record
}

// NewMemoryStore builds an in-memory merchant store for testing.
func NewMemoryStore() Store {
	return &memoryStore{}
}

func (s *memoryStore) Load(_ context.Context) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.record == nil {
		return Record{}, ErrNoAccount
	}
	return normalize(*s.record), nil
}

func (s *memoryStore) Save(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := normalize(record)
	s.record = &r
	return nil
}

func (s *memoryStore) SetLoggedIn(_ context.Context, loggedIn bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return ErrNoAccount
	}
	s.record.IsLoggedIn = loggedIn
	return nil
}
