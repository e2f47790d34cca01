package kvstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used in tests and when no Redis URL is
// configured
type MemoryStore struct {
	mu      sync.RWMutex
	values  map[string]memoryEntry
	lists   map[string][]string
	nowFunc func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:  make(map[string]memoryEntry),
		lists:   make(map[string][]string),
		nowFunc: time.Now,
	}
}

// Get returns the value for a key, or ErrNotFound
func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	entry, ok := s.values[key]
	s.mu.RUnlock()

	if !ok {
		return "", ErrNotFound
	}
	if !entry.expiresAt.IsZero() && s.nowFunc().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.values, key)
		s.mu.Unlock()
		return "", ErrNotFound
	}
	return entry.value, nil
}

// Set stores a value with an optional TTL
func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = s.nowFunc().Add(ttl)
	}

	s.mu.Lock()
	s.values[key] = entry
	s.mu.Unlock()
	return nil
}

// Expire sets a TTL on an existing key
func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.values[key]
	if !ok {
		return ErrNotFound
	}
	entry.expiresAt = s.nowFunc().Add(ttl)
	s.values[key] = entry
	return nil
}

// ListPush appends a value to a list
func (s *MemoryStore) ListPush(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.lists[key] = append(s.lists[key], value)
	s.mu.Unlock()
	return nil
}

// ListPop removes and returns the first value of a list
func (s *MemoryStore) ListPop(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[key]
	if len(list) == 0 {
		return "", ErrNotFound
	}
	value := list[0]
	s.lists[key] = list[1:]
	return value, nil
}

// Close clears the store
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]memoryEntry)
	s.lists = make(map[string][]string)
	return nil
}
