package storage

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu     sync.Mutex
	m      map[string]int64
	closed bool
}

// NewMemory returns a store that keeps the snapshot in memory.
func NewMemory() Store { return &memoryStore{m: map[string]int64{}} }

func (s *memoryStore) Load(ctx context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return cloneMap(s.m), nil
}

func (s *memoryStore) Save(ctx context.Context, m map[string]int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.m = cloneMap(m)
	return nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
