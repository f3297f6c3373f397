package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/tenantguard/internal/app"
	"github.com/charlesng35/tenantguard/internal/cache"
	"github.com/charlesng35/tenantguard/internal/models"
)

func testConfig(t *testing.T, backend string) *app.Config {
	t.Helper()

	return &app.Config{
		Server:   app.ServerConfig{Port: 8080},
		Database: app.DatabaseConfig{Driver: "sqlite", DSN: fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())},
		Cache:    app.CacheConfig{Backend: backend, TTL: time.Minute, Size: 128},
		Auth:     app.AuthConfig{JWT: app.JWTSettings{Secret: "bootstrap-secret", TTL: time.Minute}},
		RBAC:     app.RBACConfig{SuperUserRole: "Owner"},
		Maintenance: app.MaintenanceConfig{
			Enabled:            true,
			CacheSchedule:      "@every 1h",
			AuditSchedule:      "@every 1h",
			AuditRetentionDays: 30,
		},
	}
}

func TestBootstrapRuntimeSeedsAndServes(t *testing.T) {
	cfg := testConfig(t, app.CacheBackendDatabase)

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	_, isDB := stack.Store.(*cache.DatabaseStore)
	require.True(t, isDB)
	require.NotNil(t, stack.Cleaner)

	var owner models.Role
	require.NoError(t, stack.DB.Where("name = ?", "Owner").Take(&owner).Error)
	require.Equal(t, models.RealmApp, owner.Realm)

	rec := httptest.NewRecorder()
	stack.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	stack.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/roles", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBootstrapRuntimeRedisBackend(t *testing.T) {
	srv := miniredis.RunT(t)
	cfg := testConfig(t, app.CacheBackendRedis)
	cfg.Cache.Redis = app.RedisCacheConfig{Address: srv.Addr(), Timeout: time.Second, KeyPrefix: "boot:"}
	cfg.Maintenance.Enabled = false

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	_, isRedis := stack.Store.(*cache.RedisStore)
	require.True(t, isRedis)
	require.Nil(t, stack.Cleaner)
}

func TestBootstrapRuntimeFailsOnUnreachableRedis(t *testing.T) {
	cfg := testConfig(t, app.CacheBackendRedis)
	cfg.Cache.Redis = app.RedisCacheConfig{Address: "127.0.0.1:1", Timeout: 200 * time.Millisecond}

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.ErrorContains(t, err, "initialise cache store")
}

func TestNewCleanerSkipsPurgeForMemoryStore(t *testing.T) {
	cfg := testConfig(t, app.CacheBackendMemory)

	cleaner := newCleaner(cfg, cache.NewMemoryStore(8, time.Minute), nil)
	require.NoError(t, cleaner.RunOnce(context.Background()))
}

func TestLoadApplicationConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("auth:\n  jwt:\n    secret: from-file\nserver:\n  port: 9191\n"), 0o600))

	cfg, err := loadApplicationConfig(file)
	require.NoError(t, err)
	require.Equal(t, "from-file", cfg.Auth.JWT.Secret)
	require.Equal(t, 9191, cfg.Server.Port)

	_, err = loadApplicationConfig(filepath.Join(dir, "missing"))
	require.ErrorContains(t, err, "does not exist")
}
