package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
)

// KVStore is an in-memory implementation of app.KeyValueStore with lazy expiry.
type KVStore struct {
	clock func() time.Time

	mu      sync.RWMutex
	entries map[string]kvEntry
}

type kvEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewKVStore() *KVStore {
	return NewKVStoreWithClock(time.Now)
}

// NewKVStoreWithClock is useful for deterministic expiry in tests.
func NewKVStoreWithClock(clock func() time.Time) *KVStore {
	return &KVStore{
		clock:   clock,
		entries: make(map[string]kvEntry),
	}
}

func (s *KVStore) Get(_ context.Context, key string) ([]byte, error) {
	now := s.clock()

	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(now) {
		s.mu.Lock()
		if current, ok := s.entries[key]; ok && current.expiresAt.Equal(entry.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, domain.ErrKeyNotFound
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

func (s *KVStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := kvEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = s.clock().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

func (s *KVStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored keys, expired ones included.
func (s *KVStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
