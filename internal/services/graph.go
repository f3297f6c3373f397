package services

import (
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/tenantguard/internal/cache"
	"github.com/charlesng35/tenantguard/internal/models"
	apperrors "github.com/charlesng35/tenantguard/pkg/errors"
)

// Shared queries over the role/permission graph. Every helper takes the caller's transaction.

func loadPermissionsInRealm(tx *gorm.DB, ids []string, realm models.Realm) ([]models.Permission, error) {
	var perms []models.Permission
	if err := tx.Where("id IN ?", ids).Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("load permissions: %w", err)
	}
	if len(perms) != len(ids) {
		return nil, apperrors.NewNotFound("permission not found")
	}
	for _, perm := range perms {
		if perm.Realm != realm {
			return nil, apperrors.NewValidation(fmt.Sprintf("permission %q belongs to the %s realm", perm.Name, perm.Realm))
		}
	}
	sortPermissions(perms)
	return perms, nil
}

func loadRolesInRealm(tx *gorm.DB, ids []string, realm models.Realm) ([]models.Role, error) {
	var roles []models.Role
	if err := tx.Where("id IN ?", ids).Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	if len(roles) != len(ids) {
		return nil, apperrors.NewNotFound("role not found")
	}
	for _, role := range roles {
		if role.Realm != realm {
			return nil, apperrors.NewValidation(fmt.Sprintf("role %q belongs to the %s realm", role.Name, role.Realm))
		}
	}
	return roles, nil
}

func insertRolePermissions(tx *gorm.DB, pairs []models.RolePermission) error {
	if len(pairs) == 0 {
		return nil
	}
	// Existing pairs are skipped so retried requests stay idempotent.
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&pairs).Error
}

func rolesHoldingPermission(tx *gorm.DB, permissionID string) ([]string, error) {
	var roleIDs []string
	if err := tx.Model(&models.RolePermission{}).
		Where("permission_id = ?", permissionID).
		Pluck("role_id", &roleIDs).Error; err != nil {
		return nil, fmt.Errorf("load roles of permission: %w", err)
	}
	return roleIDs, nil
}

// holderKeys returns the resolved-permission keys of every (user, tenant) pair holding one of roleIDs.
// It must run before the mutation so revoked holders are still visible.
func holderKeys(tx *gorm.DB, roleIDs []string) ([]string, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}

	type holder struct {
		UserID   string
		TenantID *string
	}
	var holders []holder
	if err := tx.Model(&models.UserRole{}).
		Distinct("user_id", "tenant_id").
		Where("role_id IN ?", roleIDs).
		Scan(&holders).Error; err != nil {
		return nil, fmt.Errorf("load role holders: %w", err)
	}

	keys := make([]string, 0, len(holders))
	for _, h := range holders {
		keys = append(keys, cache.UserRolesKey(h.UserID, h.TenantID))
	}
	return keys, nil
}

// attachPermissions fills Permissions on each role with explicit join queries.
func attachPermissions(tx *gorm.DB, roles []models.Role) error {
	if len(roles) == 0 {
		return nil
	}

	roleIDs := make([]string, 0, len(roles))
	for _, role := range roles {
		roleIDs = append(roleIDs, role.ID)
	}

	var pairs []models.RolePermission
	if err := tx.Where("role_id IN ?", roleIDs).Find(&pairs).Error; err != nil {
		return fmt.Errorf("load role permissions: %w", err)
	}
	if len(pairs) == 0 {
		return nil
	}

	permIDs := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		permIDs = append(permIDs, pair.PermissionID)
	}

	var perms []models.Permission
	if err := tx.Where("id IN ?", normaliseIDs(permIDs)).Find(&perms).Error; err != nil {
		return fmt.Errorf("load permissions: %w", err)
	}
	byID := make(map[string]models.Permission, len(perms))
	for _, perm := range perms {
		byID[perm.ID] = perm
	}

	grouped := make(map[string][]models.Permission, len(roles))
	for _, pair := range pairs {
		if perm, ok := byID[pair.PermissionID]; ok {
			grouped[pair.RoleID] = append(grouped[pair.RoleID], perm)
		}
	}
	for i := range roles {
		roles[i].Permissions = grouped[roles[i].ID]
		sortPermissions(roles[i].Permissions)
	}
	return nil
}

// syncAdminFlag recomputes users.admin from the role graph.
func syncAdminFlag(tx *gorm.DB, userIDs ...string) error {
	for _, userID := range normaliseIDs(userIDs) {
		var count int64
		if err := tx.Model(&models.UserRole{}).
			Joins("JOIN roles ON roles.id = user_roles.role_id").
			Where("user_roles.user_id = ? AND roles.realm = ?", userID, models.RealmAdmin).
			Count(&count).Error; err != nil {
			return fmt.Errorf("count admin roles: %w", err)
		}
		if err := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("admin", count > 0).Error; err != nil {
			return fmt.Errorf("sync admin flag: %w", err)
		}
	}
	return nil
}

func sortPermissions(perms []models.Permission) {
	sort.SliceStable(perms, func(i, j int) bool {
		if perms[i].Realm != perms[j].Realm {
			return perms[i].Realm < perms[j].Realm
		}
		return perms[i].Order < perms[j].Order
	})
}

func ptrValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// nameTaken reports whether a row of model other than excludeID already uses name.
func nameTaken(tx *gorm.DB, model any, name, excludeID string) (bool, error) {
	query := tx.Model(model).Where("name = ?", name)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check name: %w", err)
	}
	return count > 0, nil
}

// orderTaken reports whether a row of model other than excludeID already uses order in realm.
func orderTaken(tx *gorm.DB, model any, realm models.Realm, order int, excludeID string) (bool, error) {
	var count int64
	if err := tx.Model(model).
		Where("realm = ? AND sort_order = ? AND id <> ?", realm, order, excludeID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check order: %w", err)
	}
	return count > 0, nil
}
