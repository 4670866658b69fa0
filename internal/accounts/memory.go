package accounts

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps accounts in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]Account), now: time.Now}
}

func (s *MemoryStore) Get(ctx context.Context, ticketNumber string) LookupResult {
	if err := ctx.Err(); err != nil {
		return LookupFailed(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[ticketNumber]
	if !ok {
		return NotFound()
	}
	return Found(a)
}

func (s *MemoryStore) Create(ctx context.Context, a Account) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.TicketNumber]; ok {
		return Account{}, ErrAlreadyExists
	}
	now := s.now()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.accounts[a.TicketNumber] = a
	return a, nil
}

func (s *MemoryStore) Update(ctx context.Context, ticketNumber string, patch Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[ticketNumber]
	if !ok {
		return ErrNotFound
	}
	if patch.IsEmpty() {
		return nil
	}
	a = patch.Apply(a)
	a.UpdatedAt = s.now()
	s.accounts[ticketNumber] = a
	return nil
}
