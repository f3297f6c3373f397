package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/tenantguard/internal/models"
)

// DefaultSuperUserRole is the app-realm role protected from losing its last holder in a tenant.
const DefaultSuperUserRole = "Super User"

// SeedOptions controls the catalog written by SeedData.
type SeedOptions struct {
	// Permissions is the permission catalog, upserted by name.
	Permissions []models.Permission
	// SuperUserRole names the seeded app-realm role that receives every app permission.
	SuperUserRole string
}

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Tenant{},
		&models.Permission{},
		&models.Role{},
		&models.RolePermission{},
		&models.UserRole{},
		&models.AuditLog{},
		&models.CacheEntry{},
	)
}

type seedRole struct {
	role     models.Role
	grantAll bool
}

// SeedData syncs the permission catalog and creates the default roles of each realm.
// Existing rows are never overwritten beyond description and default flags, so it is safe on every boot.
func SeedData(db *gorm.DB, opts SeedOptions) error {
	superUser := strings.TrimSpace(opts.SuperUserRole)
	if superUser == "" {
		superUser = DefaultSuperUserRole
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, def := range opts.Permissions {
			if err := upsertPermission(tx, def); err != nil {
				return fmt.Errorf("sync permission %s: %w", def.Name, err)
			}
		}

		roles := []seedRole{
			{
				role: models.Role{
					Name:        "Administrator",
					Description: "Full access to the administration realm",
					Realm:       models.RealmAdmin,
					IsDefault:   true,
					IsSystem:    true,
				},
				grantAll: true,
			},
			{
				role: models.Role{
					Name:        superUser,
					Description: "Full access within a tenant",
					Realm:       models.RealmApp,
					IsDefault:   true,
					IsSystem:    true,
				},
				grantAll: true,
			},
			{
				role: models.Role{
					Name:             "Member",
					Description:      "Standard tenant membership",
					Realm:            models.RealmApp,
					IsDefault:        true,
					AssignToNewUsers: true,
				},
			},
		}

		for _, seed := range roles {
			role, err := ensureRole(tx, seed.role)
			if err != nil {
				return fmt.Errorf("seed role %s: %w", seed.role.Name, err)
			}

			query := tx.Model(&models.Permission{}).Where("realm = ?", role.Realm)
			if !seed.grantAll {
				query = query.Where("is_default = ?", true)
			}

			var permissionIDs []string
			if err := query.Pluck("id", &permissionIDs).Error; err != nil {
				return err
			}
			if err := grantPermissions(tx, role.ID, permissionIDs); err != nil {
				return fmt.Errorf("grant permissions to %s: %w", role.Name, err)
			}
		}

		return nil
	})
}

func upsertPermission(tx *gorm.DB, def models.Permission) error {
	var existing models.Permission
	err := tx.Where("name = ?", def.Name).Limit(1).Find(&existing).Error
	if err != nil {
		return err
	}

	if existing.ID != "" {
		return tx.Model(&existing).Updates(map[string]any{
			"description": def.Description,
			"is_default":  def.IsDefault,
		}).Error
	}

	order, err := NextOrder(tx, &models.Permission{}, def.Realm)
	if err != nil {
		return err
	}

	record := models.Permission{
		Name:        def.Name,
		Description: def.Description,
		Realm:       def.Realm,
		IsDefault:   def.IsDefault,
		Order:       order,
	}
	return tx.Create(&record).Error
}

// ensureRole creates role unless its name exists. An existing role that should be a system role is
// pinned, which is how a renamed super-user configuration takes over a role created by hand.
func ensureRole(tx *gorm.DB, role models.Role) (models.Role, error) {
	var existing models.Role
	if err := tx.Where("name = ?", role.Name).Limit(1).Find(&existing).Error; err != nil {
		return models.Role{}, err
	}
	if existing.ID != "" {
		if existing.Realm != role.Realm {
			return models.Role{}, fmt.Errorf("role %q exists in the %s realm, expected %s", role.Name, existing.Realm, role.Realm)
		}
		if role.IsSystem && !existing.IsSystem {
			if err := tx.Model(&existing).Update("is_system", true).Error; err != nil {
				return models.Role{}, err
			}
			existing.IsSystem = true
		}
		return existing, nil
	}

	order, err := NextOrder(tx, &models.Role{}, role.Realm)
	if err != nil {
		return models.Role{}, err
	}
	role.Order = order
	if err := tx.Create(&role).Error; err != nil {
		return models.Role{}, err
	}
	return role, nil
}

func grantPermissions(tx *gorm.DB, roleID string, permissionIDs []string) error {
	if len(permissionIDs) == 0 {
		return nil
	}

	rows := make([]models.RolePermission, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		rows = append(rows, models.RolePermission{RoleID: roleID, PermissionID: id})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// NextOrder returns max(sort_order)+1 among rows of the given realm for model.
func NextOrder(tx *gorm.DB, model any, realm models.Realm) (int, error) {
	var current int
	if err := tx.Model(model).Where("realm = ?", realm).Select("COALESCE(MAX(sort_order), 0)").Scan(&current).Error; err != nil {
		return 0, err
	}
	return current + 1, nil
}
