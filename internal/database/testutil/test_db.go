package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/tenantguard/internal/database"
	"github.com/charlesng35/tenantguard/internal/models"
)

// TestDBOption customises the behaviour of MustOpenTestDB.
type TestDBOption func(*testDBConfig)

type testDBConfig struct {
	autoMigrate bool
	seed        *database.SeedOptions
}

// WithAutoMigrate enables automatic schema migration after opening the test database.
func WithAutoMigrate() TestDBOption {
	return func(cfg *testDBConfig) {
		cfg.autoMigrate = true
	}
}

// WithSeedData applies migrations and seeds the given permission catalog and default roles.
func WithSeedData(catalog []models.Permission) TestDBOption {
	return func(cfg *testDBConfig) {
		cfg.autoMigrate = true
		cfg.seed = &database.SeedOptions{Permissions: catalog}
	}
}

// MustOpenTestDB opens a private in-memory SQLite database for tests, applying optional migrations/seed data.
// The returned connection is automatically closed via t.Cleanup.
func MustOpenTestDB(t *testing.T, opts ...TestDBOption) *gorm.DB {
	t.Helper()

	cfg := testDBConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := database.Open(database.Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)

	if cfg.seed != nil {
		require.NoError(t, database.AutoMigrateAndSeed(db, *cfg.seed))
	} else if cfg.autoMigrate {
		require.NoError(t, database.AutoMigrate(db))
	}

	t.Cleanup(func() {
		_ = database.Close(db)
	})

	return db
}

// MustCreateUser inserts a user with a unique email.
func MustCreateUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()

	user := models.User{Name: name, Email: fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8])}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// MustCreateTenant inserts a tenant with a unique slug.
func MustCreateTenant(t *testing.T, db *gorm.DB, name string) models.Tenant {
	t.Helper()

	tenant := models.Tenant{Name: name, Slug: fmt.Sprintf("%s-%s", name, uuid.NewString()[:8])}
	require.NoError(t, db.Create(&tenant).Error)
	return tenant
}
