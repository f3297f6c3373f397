package database

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/tenantguard/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Exec("SELECT 1").Error)
	require.NoError(t, Ping(db))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestAutoMigrateAndSeedData(t *testing.T) {
	db := openTestDB(t)

	catalog := []models.Permission{
		{Name: "admin.roles.view", Realm: models.RealmAdmin, IsDefault: true},
		{Name: "admin.roles.update", Realm: models.RealmAdmin},
		{Name: "app.members.view", Realm: models.RealmApp, IsDefault: true},
		{Name: "app.members.roles.update", Realm: models.RealmApp},
	}
	require.NoError(t, AutoMigrateAndSeed(db, SeedOptions{Permissions: catalog}))

	var permissions []models.Permission
	require.NoError(t, db.Order("realm, sort_order").Find(&permissions).Error)
	require.Len(t, permissions, 4)
	require.Equal(t, 1, permissions[0].Order)
	require.Equal(t, 2, permissions[1].Order)

	require.ElementsMatch(t, []string{"admin.roles.view", "admin.roles.update"}, rolePermissionNames(t, db, "Administrator"))
	require.ElementsMatch(t, []string{"app.members.view", "app.members.roles.update"}, rolePermissionNames(t, db, DefaultSuperUserRole))
	require.ElementsMatch(t, []string{"app.members.view"}, rolePermissionNames(t, db, "Member"))

	var member models.Role
	require.NoError(t, db.Where("name = ?", "Member").First(&member).Error)
	require.True(t, member.AssignToNewUsers)
	require.Equal(t, models.RealmApp, member.Realm)
}

func TestSeedDataIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	catalog := []models.Permission{{Name: "app.members.view", Realm: models.RealmApp, IsDefault: true, Description: "v1"}}
	require.NoError(t, AutoMigrateAndSeed(db, SeedOptions{Permissions: catalog}))

	catalog[0].Description = "v2"
	require.NoError(t, SeedData(db, SeedOptions{Permissions: catalog}))

	var count int64
	require.NoError(t, db.Model(&models.Role{}).Count(&count).Error)
	require.EqualValues(t, 3, count)

	var perm models.Permission
	require.NoError(t, db.Where("name = ?", "app.members.view").First(&perm).Error)
	require.Equal(t, "v2", perm.Description)
	require.Equal(t, 1, perm.Order)
}

func TestSeedDataCustomSuperUserName(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrateAndSeed(db, SeedOptions{SuperUserRole: "Owner"}))

	var role models.Role
	require.NoError(t, db.Where("name = ?", "Owner").First(&role).Error)
	require.Equal(t, models.RealmApp, role.Realm)
}

func TestSeedDataPinsSystemRoles(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))
	require.NoError(t, db.Create(&models.Role{Name: "Owner", Realm: models.RealmApp, Order: 1}).Error)

	require.NoError(t, SeedData(db, SeedOptions{SuperUserRole: "Owner"}))

	system := map[string]bool{}
	var roles []models.Role
	require.NoError(t, db.Find(&roles).Error)
	for _, role := range roles {
		system[role.Name] = role.IsSystem
	}
	require.Equal(t, map[string]bool{"Administrator": true, "Owner": true, "Member": false}, system)

	clash := openTestDB(t)
	require.NoError(t, AutoMigrate(clash))
	require.NoError(t, clash.Create(&models.Role{Name: "Owner", Realm: models.RealmAdmin, Order: 1}).Error)
	require.Error(t, SeedData(clash, SeedOptions{SuperUserRole: "Owner"}))
}

func TestNextOrderPerRealm(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	next, err := NextOrder(db, &models.Role{}, models.RealmApp)
	require.NoError(t, err)
	require.Equal(t, 1, next)

	require.NoError(t, db.Create(&models.Role{Name: "a", Realm: models.RealmApp, Order: 7}).Error)
	require.NoError(t, db.Create(&models.Role{Name: "b", Realm: models.RealmAdmin, Order: 3}).Error)

	next, err = NextOrder(db, &models.Role{}, models.RealmApp)
	require.NoError(t, err)
	require.Equal(t, 8, next)

	next, err = NextOrder(db, &models.Role{}, models.RealmAdmin)
	require.NoError(t, err)
	require.Equal(t, 4, next)
}

func rolePermissionNames(t *testing.T, db *gorm.DB, roleName string) []string {
	t.Helper()

	var names []string
	err := db.Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN roles ON roles.id = role_permissions.role_id").
		Where("roles.name = ?", roleName).
		Pluck("permissions.name", &names).Error
	require.NoError(t, err)
	return names
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := Open(Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = Close(db)
	})

	return db
}
