package presence

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store used by tests.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]Presence
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Presence)}
}

func (s *MemoryStore) Get(ctx context.Context, workerID string) (Presence, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[workerID]
	return p, ok, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, p Presence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[p.WorkerID] = p
	return nil
}

var _ Store = (*MemoryStore)(nil)
