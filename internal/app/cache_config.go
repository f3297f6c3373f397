package app

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/tenantguard/internal/cache"
)

// Cache backends accepted by cache.backend.
const (
	CacheBackendMemory   = "memory"
	CacheBackendRedis    = "redis"
	CacheBackendDatabase = "database"
	CacheBackendNone     = "none"
)

// RedisClientConfig converts the application cache configuration into the cache package representation.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Address:   strings.TrimSpace(c.Redis.Address),
		Username:  strings.TrimSpace(c.Redis.Username),
		Password:  c.Redis.Password,
		DB:        c.Redis.DB,
		TLS:       c.Redis.TLS,
		Timeout:   c.Redis.Timeout,
		KeyPrefix: c.Redis.KeyPrefix,
	}
}

// NewStore builds the cache store for the configured backend. db backs the database backend.
func (c CacheConfig) NewStore(ctx context.Context, db *gorm.DB) (cache.Store, error) {
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case CacheBackendMemory, "":
		return cache.NewMemoryStore(c.Size, c.TTL), nil
	case CacheBackendRedis:
		store, err := cache.NewRedisStore(ctx, c.RedisClientConfig())
		if err != nil {
			return nil, err
		}
		return store, nil
	case CacheBackendDatabase:
		if db == nil {
			return nil, fmt.Errorf("cache: database backend requires a database handle")
		}
		return cache.NewDatabaseStore(db), nil
	case CacheBackendNone:
		return cache.NewNoopStore(), nil
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", c.Backend)
	}
}
