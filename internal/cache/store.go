package cache

import (
	"context"
	"time"
)

// Store is the key-value capability fronting the authorization graph.
// Implementations are explicitly constructed, injected and closed by their owner.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// NoopStore never retains anything, so every lookup computes fresh.
type NoopStore struct{}

// NewNoopStore returns a Store with caching disabled.
func NewNoopStore() NoopStore { return NoopStore{} }

func (NoopStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (NoopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NoopStore) Delete(context.Context, ...string) error { return nil }

func (NoopStore) Close() error { return nil }
