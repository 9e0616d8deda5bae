package store

import (
	"context"
	"sync"

	"github.com/casbridge/casbridge/internal/core"
)

var _ core.Store = (*InMemoryStore)(nil)

// InMemoryStore keeps all records in process memory. It satisfies the same
// contract as the durable backends and is the default for tests and local
// development; nothing survives a restart.
type InMemoryStore struct {
	mu      sync.RWMutex
	tokens  map[string]core.TokenRecord
	tickets map[string]core.TicketRef
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tokens:  make(map[string]core.TokenRecord),
		tickets: make(map[string]core.TicketRef),
	}
}

func (s *InMemoryStore) PutToken(_ context.Context, record core.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[record.TokenID]; ok {
		return core.ErrAlreadyExists
	}
	s.tokens[record.TokenID] = record
	return nil
}

func (s *InMemoryStore) GetToken(_ context.Context, tokenID string) (core.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.tokens[tokenID]
	if !ok {
		return core.TokenRecord{}, core.ErrNotFound
	}
	return record, nil
}

func (s *InMemoryStore) ReplaceToken(_ context.Context, record core.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[record.TokenID]; !ok {
		return core.ErrNotFound
	}
	s.tokens[record.TokenID] = record
	return nil
}

func (s *InMemoryStore) DeleteToken(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, tokenID)
	return nil
}

func (s *InMemoryStore) PutTicket(_ context.Context, ticketID string, ref core.TicketRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[ticketID]; ok {
		return core.ErrAlreadyExists
	}
	s.tickets[ticketID] = ref
	return nil
}

func (s *InMemoryStore) GetTicket(_ context.Context, ticketID string) (core.TicketRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref, ok := s.tickets[ticketID]
	if !ok {
		return core.TicketRef{}, core.ErrNotFound
	}
	return ref, nil
}

func (s *InMemoryStore) DeleteTicket(_ context.Context, ticketID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tickets, ticketID)
	return nil
}

func (s *InMemoryStore) ListTokenIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.tokens))
	for id := range s.tokens {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *InMemoryStore) ListTicketIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.tickets))
	for id := range s.tickets {
		ids = append(ids, id)
	}
	return ids, nil
}
