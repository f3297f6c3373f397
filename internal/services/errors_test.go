package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/tenantguard/internal/models"
)

func TestCreateWithOrderRetry(t *testing.T) {
	env := newTestEnv(t)
	perm := env.insertPermission(t, "reports.view", models.RealmApp)
	env.createRole(t, "Analyst", models.RealmApp, perm)

	calls := 0
	flaky := func(*gorm.DB) error {
		calls++
		if calls == 1 {
			return gorm.ErrDuplicatedKey
		}
		return nil
	}
	require.NoError(t, createWithOrderRetry(env.db, &models.Role{}, "Viewer", flaky))
	require.Equal(t, 2, calls)

	calls = 0
	err := createWithOrderRetry(env.db, &models.Role{}, "Analyst", func(*gorm.DB) error {
		calls++
		return gorm.ErrDuplicatedKey
	})
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	require.Equal(t, 1, calls, "a name clash is not retried")

	calls = 0
	boom := errors.New("disk full")
	err = createWithOrderRetry(env.db, &models.Role{}, "Viewer", func(*gorm.DB) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

func TestCreateRoleRecoversFromConcurrentOrder(t *testing.T) {
	env := newTestEnv(t)
	perm := env.insertPermission(t, "reports.view", models.RealmApp)

	// Claim the next order inside the transaction, the way a concurrent create would, once.
	var claimed atomic.Bool
	require.NoError(t, env.db.Callback().Create().Before("gorm:create").Register("test:claim_order", func(tx *gorm.DB) {
		role, ok := tx.Statement.Dest.(*models.Role)
		if !ok || claimed.Swap(true) {
			return
		}
		now := time.Now()
		tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO roles (id, created_at, updated_at, name, realm, sort_order) VALUES (?, ?, ?, ?, ?, ?)",
			uuid.NewString(), now, now, "Concurrent", role.Realm, role.Order,
		)
	}))

	role, err := env.roles.CreateRole(context.Background(), CreateRoleInput{
		Name:          "Analyst",
		Realm:         models.RealmApp,
		PermissionIDs: []string{perm.ID},
	})
	require.NoError(t, err)
	require.True(t, claimed.Load())
	require.Equal(t, 1, role.Order)

	var names []string
	require.NoError(t, env.db.Model(&models.Role{}).Order("name").Pluck("name", &names).Error)
	require.Equal(t, []string{"Analyst"}, names)
}
