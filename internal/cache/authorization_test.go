package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tenantguard/internal/models"
)

type failingStore struct {
	getErr    error
	deleteErr error
	deleted   []string
}

func (s *failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, s.getErr
}

func (s *failingStore) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (s *failingStore) Delete(_ context.Context, keys ...string) error {
	s.deleted = append(s.deleted, keys...)
	return s.deleteErr
}

func (s *failingStore) Close() error { return nil }

func TestUserPermissionsReadThrough(t *testing.T) {
	cache := NewAuthorizationCache(NewMemoryStore(16, time.Minute), time.Minute)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"app.members.view"}, nil
	}

	tenant := "t-1"
	for i := 0; i < 3; i++ {
		names, err := cache.UserPermissions(ctx, "u-1", &tenant, load)
		require.NoError(t, err)
		require.Equal(t, []string{"app.members.view"}, names)
	}
	require.Equal(t, 1, calls)

	require.NoError(t, cache.Invalidate(ctx, UserRolesKey("u-1", &tenant)))
	_, err := cache.UserPermissions(ctx, "u-1", &tenant, load)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestUserPermissionsCachesEmptySet(t *testing.T) {
	cache := NewAuthorizationCache(NewMemoryStore(16, time.Minute), time.Minute)
	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return nil, nil
	}

	for i := 0; i < 2; i++ {
		names, err := cache.UserPermissions(context.Background(), "u-1", nil, load)
		require.NoError(t, err)
		require.Empty(t, names)
	}
	require.Equal(t, 1, calls)
}

func TestPermissionMissIsNotCached(t *testing.T) {
	cache := NewAuthorizationCache(NewMemoryStore(16, time.Minute), time.Minute)
	calls := 0
	var current *models.Permission
	load := func(context.Context) (*models.Permission, error) {
		calls++
		return current, nil
	}

	perm, err := cache.Permission(context.Background(), "reports.view", load)
	require.NoError(t, err)
	require.Nil(t, perm)

	current = &models.Permission{Name: "reports.view", Realm: models.RealmApp}
	perm, err = cache.Permission(context.Background(), "reports.view", load)
	require.NoError(t, err)
	require.NotNil(t, perm)

	perm, err = cache.Permission(context.Background(), "reports.view", load)
	require.NoError(t, err)
	require.Equal(t, "reports.view", perm.Name)
	require.Equal(t, 2, calls)
}

func TestLoaderErrorsPropagate(t *testing.T) {
	cache := NewAuthorizationCache(nil, 0)
	boom := errors.New("store down")

	_, err := cache.Roles(context.Background(), models.RealmAdmin, func(context.Context) ([]models.Role, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestReadErrorsDegradeToLoader(t *testing.T) {
	cache := NewAuthorizationCache(&failingStore{getErr: errors.New("timeout")}, time.Minute)

	names, err := cache.UserPermissions(context.Background(), "u-1", nil, func(context.Context) ([]string, error) {
		return []string{"admin.roles.view"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"admin.roles.view"}, names)
}

func TestInvalidateDeduplicatesAndReportsFailures(t *testing.T) {
	store := &failingStore{}
	cache := NewAuthorizationCache(store, time.Minute)

	require.NoError(t, cache.Invalidate(context.Background(), "roles:app", "", "roles:app", "permission:x"))
	require.Equal(t, []string{"roles:app", "permission:x"}, store.deleted)

	store.deleteErr = errors.New("unreachable")
	require.Error(t, cache.Invalidate(context.Background(), "roles:admin"))
	require.NoError(t, cache.Invalidate(context.Background()))
}

func TestCorruptEntryIsRecomputed(t *testing.T) {
	store := NewMemoryStore(16, time.Minute)
	require.NoError(t, store.Set(context.Background(), RolesKey(models.RealmApp), []byte("{not json"), time.Minute))
	cache := NewAuthorizationCache(store, time.Minute)

	roles, err := cache.Roles(context.Background(), models.RealmApp, func(context.Context) ([]models.Role, error) {
		return []models.Role{{Name: "Member", Realm: models.RealmApp}}, nil
	})
	require.NoError(t, err)
	require.Len(t, roles, 1)
}
