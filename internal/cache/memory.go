package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultMemorySize = 10_000

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a process-local LRU store. Entries expire at the earlier of their own TTL
// and the store-wide TTL.
type MemoryStore struct {
	lru *expirable.LRU[string, memoryEntry]
}

// NewMemoryStore creates a MemoryStore holding at most size entries.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = defaultMemorySize
	}
	return &MemoryStore{lru: expirable.NewLRU[string, memoryEntry](size, nil, ttl)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	entry, ok := s.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		s.lru.Remove(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.lru.Add(key, entry)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.lru.Remove(key)
	}
	return nil
}

// Len reports the number of resident entries, including ones awaiting expiry.
func (s *MemoryStore) Len() int {
	return s.lru.Len()
}

func (s *MemoryStore) Close() error {
	s.lru.Purge()
	return nil
}
