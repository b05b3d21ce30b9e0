package payments

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	entry   IdempotencyEntry
	expires time.Time
}

// MemoryIdempotencyStore keeps entries in process with TTL eviction. It suits
// single-instance deployments and tests.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	items   map[string]memoryItem
	locks   map[string]time.Time
	now     func() time.Time
	stop    chan struct{}
	stopped sync.Once
}

// NewMemoryIdempotencyStore starts a janitor sweeping expired entries every
// interval; interval <= 0 disables the janitor (expiry is still checked on read).
func NewMemoryIdempotencyStore(interval time.Duration) *MemoryIdempotencyStore {
	s := &MemoryIdempotencyStore{
		items: make(map[string]memoryItem),
		locks: make(map[string]time.Time),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	if interval > 0 {
		go s.janitor(interval)
	}
	return s
}

func (s *MemoryIdempotencyStore) Get(_ context.Context, key string) (*IdempotencyEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(item.expires) {
		delete(s.items, key)
		return nil, nil
	}
	entry := item.entry
	return &entry, nil
}

func (s *MemoryIdempotencyStore) Put(_ context.Context, key string, entry IdempotencyEntry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = memoryItem{entry: entry, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryIdempotencyStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	delete(s.locks, key)
	return nil
}

func (s *MemoryIdempotencyStore) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if until, held := s.locks[key]; held && now.Before(until) {
		return false, nil
	}
	s.locks[key] = now.Add(ttl)
	return true, nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, key)
	return nil
}

// Len reports live entries.
func (s *MemoryIdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Close stops the janitor.
func (s *MemoryIdempotencyStore) Close() {
	s.stopped.Do(func() { close(s.stop) })
}

func (s *MemoryIdempotencyStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *MemoryIdempotencyStore) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, item := range s.items {
		if !now.Before(item.expires) {
			delete(s.items, key)
		}
	}
	for key, until := range s.locks {
		if !now.Before(until) {
			delete(s.locks, key)
		}
	}
}
