package session

import (
	"context"
	"sync"

	"github.com/popitgo/client/internal/backend"
)

// MemoryStore holds the session in process memory
type MemoryStore struct {
	mu      sync.Mutex
	session *backend.Session
}

// NewMemoryStore returns an empty memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored session
func (m *MemoryStore) Load(ctx context.Context) (*backend.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil
	}
	cp := *m.session
	return &cp, nil
}

// Save stores a copy of s
func (m *MemoryStore) Save(ctx context.Context, s *backend.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s == nil {
		m.session = nil
		return nil
	}
	cp := *s
	m.session = &cp
	return nil
}

// Clear drops the stored session
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}
