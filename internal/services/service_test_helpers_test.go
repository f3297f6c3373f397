package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/tenantguard/internal/cache"
	"github.com/charlesng35/tenantguard/internal/database"
	"github.com/charlesng35/tenantguard/internal/database/testutil"
	"github.com/charlesng35/tenantguard/internal/models"
	"github.com/charlesng35/tenantguard/internal/permissions"
	"github.com/charlesng35/tenantguard/internal/sessionctx"
)

type testEnv struct {
	db          *gorm.DB
	store       cache.Store
	caching     bool
	cache       *cache.AuthorizationCache
	audit       *AuditService
	roles       *RoleService
	permissions *PermissionService
	userRoles   *UserRoleService
	tenants     *TenantAccessService
	resolver    *permissions.Resolver
	gate        *permissions.Gate
}

func newTestEnv(t *testing.T, opts ...testutil.TestDBOption) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, cache.NewMemoryStore(256, time.Minute), opts...)
}

func newTestEnvWithStore(t *testing.T, store cache.Store, opts ...testutil.TestDBOption) *testEnv {
	t.Helper()

	if len(opts) == 0 {
		opts = []testutil.TestDBOption{testutil.WithAutoMigrate()}
	}
	db := testutil.MustOpenTestDB(t, opts...)

	authzCache := cache.NewAuthorizationCache(store, time.Minute)
	_, noop := store.(cache.NoopStore)

	audit, err := NewAuditService(db)
	require.NoError(t, err)
	roles, err := NewRoleService(db, authzCache, audit)
	require.NoError(t, err)
	perms, err := NewPermissionService(db, authzCache, audit)
	require.NoError(t, err)
	userRoles, err := NewUserRoleService(db, authzCache, audit)
	require.NoError(t, err)
	tenants, err := NewTenantAccessService(db, userRoles, "")
	require.NoError(t, err)
	resolver, err := permissions.NewResolver(db, authzCache)
	require.NoError(t, err)
	gate, err := permissions.NewGate(resolver)
	require.NoError(t, err)

	return &testEnv{
		db:          db,
		store:       store,
		caching:     !noop,
		cache:       authzCache,
		audit:       audit,
		roles:       roles,
		permissions: perms,
		userRoles:   userRoles,
		tenants:     tenants,
		resolver:    resolver,
		gate:        gate,
	}
}

// forEachCacheMode runs fn once with a caching store and once with caching disabled. Both runs
// must observe the same answers.
func forEachCacheMode(t *testing.T, fn func(t *testing.T, env *testEnv)) {
	modes := []struct {
		name  string
		store func() cache.Store
	}{
		{"memory", func() cache.Store { return cache.NewMemoryStore(256, time.Minute) }},
		{"noop", func() cache.Store { return cache.NewNoopStore() }},
	}
	for _, mode := range modes {
		t.Run(mode.name, func(t *testing.T) {
			fn(t, newTestEnvWithStore(t, mode.store()))
		})
	}
}

// newSeededEnv opens a database holding the built-in catalog and default roles.
func newSeededEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnv(t, testutil.WithSeedData(permissions.Catalog()))
}

// insertPermission writes a catalog row directly, bypassing the at-least-one-role rule.
func (e *testEnv) insertPermission(t *testing.T, name string, realm models.Realm) models.Permission {
	t.Helper()

	order, err := database.NextOrder(e.db, &models.Permission{}, realm)
	require.NoError(t, err)
	perm := models.Permission{Name: name, Realm: realm, Order: order}
	require.NoError(t, e.db.Create(&perm).Error)
	return perm
}

func (e *testEnv) createRole(t *testing.T, name string, realm models.Realm, perms ...models.Permission) *models.Role {
	t.Helper()

	ids := make([]string, 0, len(perms))
	for _, perm := range perms {
		ids = append(ids, perm.ID)
	}
	role, err := e.roles.CreateRole(context.Background(), CreateRoleInput{Name: name, Realm: realm, PermissionIDs: ids})
	require.NoError(t, err)
	return role
}

func (e *testEnv) roleByName(t *testing.T, name string) models.Role {
	t.Helper()

	var role models.Role
	require.NoError(t, e.db.Where("name = ?", name).Take(&role).Error)
	return role
}

func (e *testEnv) resolve(t *testing.T, userID string, tenantID *string) []string {
	t.Helper()

	set, err := e.resolver.Resolve(context.Background(), userID, tenantID)
	require.NoError(t, err)
	return set.Names()
}

func (e *testEnv) isAdmin(t *testing.T, userID string) bool {
	t.Helper()

	var user models.User
	require.NoError(t, e.db.Take(&user, "id = ?", userID).Error)
	return user.Admin
}

func (e *testEnv) countUserRoles(t *testing.T, userID string) int64 {
	t.Helper()

	var count int64
	require.NoError(t, e.db.Model(&models.UserRole{}).Where("user_id = ?", userID).Count(&count).Error)
	return count
}

func actorContext(userID string) context.Context {
	return sessionctx.WithSession(context.Background(), sessionctx.Session{UserID: userID, IPAddress: "198.51.100.7"})
}

func strPtr(value string) *string {
	return &value
}
