package quota

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore is the in-process Store variant: a map guarded by a single
// mutex. The expiry check and the reset-or-increment happen under the same
// critical section, so two concurrent increments on an expired key cannot
// both win the reset.
type MemoryStore struct {
	mu      sync.Mutex
	nowFn   func() time.Time
	entries map[string]*memoryEntry
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nowFn:   time.Now,
		entries: make(map[string]*memoryEntry),
	}
}

// Increment bumps the counter for key, restarting expired windows at 1.
func (s *MemoryStore) Increment(_ context.Context, key string) (int64, error) {
	now := s.nowFn()
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entries[key]
	if entry == nil || s.expired(entry, now) {
		entry = &memoryEntry{}
		s.entries[key] = entry
	}
	entry.count++
	return entry.count, nil
}

// Peek returns the current count, treating expired entries as absent.
func (s *MemoryStore) Peek(_ context.Context, key string) (int64, error) {
	now := s.nowFn()
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entries[key]
	if entry == nil || s.expired(entry, now) {
		return 0, nil
	}
	return entry.count, nil
}

// ExpireAfter arms the expiry for key. Expired entries are dropped lazily on
// the next access rather than eagerly deleted.
func (s *MemoryStore) ExpireAfter(_ context.Context, key string, ttl time.Duration) error {
	now := s.nowFn()
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entries[key]
	if entry == nil {
		return nil
	}
	entry.expiresAt = now.Add(ttl)
	return nil
}

func (s *MemoryStore) expired(entry *memoryEntry, now time.Time) bool {
	return !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt)
}
