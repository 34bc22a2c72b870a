package session

import (
	"context"
	"time"

	"github.com/couchcryptid/groundwater-dss-service/internal/cache"
	"github.com/jonboulle/clockwork"
)

// MemoryStore keeps sessions in a bounded in-process LRU. The least recently
// used session is dropped once maxSessions is exceeded.
type MemoryStore struct {
	lru *cache.LRU[Session]
}

// NewMemoryStore creates a MemoryStore. A nil clock uses the real clock.
func NewMemoryStore(maxSessions int, ttl time.Duration, clock clockwork.Clock) *MemoryStore {
	return &MemoryStore{lru: cache.New[Session](maxSessions, ttl, clock)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s, ok := m.lru.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	m.lru.Put(s.ID, *s)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.lru.Delete(id)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

// Len returns the number of held sessions.
func (m *MemoryStore) Len() int { return m.lru.Len() }
