package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/tenantguard/internal/models"
	"github.com/charlesng35/tenantguard/pkg/logger"
	"github.com/charlesng35/tenantguard/pkg/metrics"
)

// DefaultTTL bounds the lifetime of an entry whose invalidation was missed.
const DefaultTTL = 5 * time.Minute

// AuthorizationCache is a read-through cache over the permission catalog, role listings and
// resolved permission sets. Read failures fall back to the loader; delete failures are returned.
type AuthorizationCache struct {
	store Store
	ttl   time.Duration
	log   *zap.Logger
}

// NewAuthorizationCache wraps store. A nil store disables caching.
func NewAuthorizationCache(store Store, ttl time.Duration) *AuthorizationCache {
	if store == nil {
		store = NoopStore{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &AuthorizationCache{
		store: store,
		ttl:   ttl,
		log:   logger.WithModule("authz-cache"),
	}
}

// Permission returns the permission named name. load returns nil for an unknown name;
// misses are not cached so a later seed is observed immediately.
func (c *AuthorizationCache) Permission(ctx context.Context, name string, load func(context.Context) (*models.Permission, error)) (*models.Permission, error) {
	return readThrough(ctx, c, PermissionKey(name), func(ctx context.Context) (*models.Permission, bool, error) {
		perm, err := load(ctx)
		if err != nil {
			return nil, false, err
		}
		return perm, perm != nil, nil
	})
}

// Roles returns the role listing for realm.
func (c *AuthorizationCache) Roles(ctx context.Context, realm models.Realm, load func(context.Context) ([]models.Role, error)) ([]models.Role, error) {
	return readThrough(ctx, c, RolesKey(realm), func(ctx context.Context) ([]models.Role, bool, error) {
		roles, err := load(ctx)
		return roles, err == nil, err
	})
}

// UserPermissions returns the permission names held by userID in tenantID (admin realm when nil).
func (c *AuthorizationCache) UserPermissions(ctx context.Context, userID string, tenantID *string, load func(context.Context) ([]string, error)) ([]string, error) {
	return readThrough(ctx, c, UserRolesKey(userID, tenantID), func(ctx context.Context) ([]string, bool, error) {
		names, err := load(ctx)
		if names == nil {
			names = []string{}
		}
		return names, err == nil, err
	})
}

// Invalidate deletes keys. Duplicates are collapsed.
func (c *AuthorizationCache) Invalidate(ctx context.Context, keys ...string) error {
	unique := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, key)
	}
	if len(unique) == 0 {
		return nil
	}

	if err := c.store.Delete(ctx, unique...); err != nil {
		c.log.Error("cache invalidation failed", zap.Strings("keys", unique), zap.Error(err))
		return fmt.Errorf("authz cache: invalidate: %w", err)
	}
	for _, key := range unique {
		metrics.CacheInvalidations.WithLabelValues(namespaceOf(key)).Inc()
	}
	return nil
}

// Close releases the underlying store.
func (c *AuthorizationCache) Close() error {
	return c.store.Close()
}

func readThrough[T any](ctx context.Context, c *AuthorizationCache, key string, load func(context.Context) (T, bool, error)) (T, error) {
	namespace := namespaceOf(key)

	raw, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues(namespace, "error").Inc()
		c.log.Warn("cache read failed, computing fresh", zap.String("key", key), zap.Error(err))
	case ok:
		var cached T
		decodeErr := json.Unmarshal(raw, &cached)
		if decodeErr == nil {
			metrics.CacheLookups.WithLabelValues(namespace, "hit").Inc()
			return cached, nil
		}
		metrics.CacheLookups.WithLabelValues(namespace, "error").Inc()
		c.log.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(decodeErr))
	default:
		metrics.CacheLookups.WithLabelValues(namespace, "miss").Inc()
	}

	value, cacheable, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if !cacheable {
		return value, nil
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return value, nil
	}
	if err := c.store.Set(ctx, key, encoded, c.ttl); err != nil {
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}
