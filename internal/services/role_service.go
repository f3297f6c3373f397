package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/tenantguard/internal/cache"
	"github.com/charlesng35/tenantguard/internal/database"
	"github.com/charlesng35/tenantguard/internal/models"
	apperrors "github.com/charlesng35/tenantguard/pkg/errors"
)

// ErrSystemRoleImmutable rejects renaming or deleting a seeded system role.
var ErrSystemRoleImmutable = apperrors.NewPolicy("system roles cannot be renamed or deleted")

// RoleService manages roles and their permission sets. Callers enforce privilege through the gate.
type RoleService struct {
	db    *gorm.DB
	cache *cache.AuthorizationCache
	audit *AuditService
}

// NewRoleService constructs a RoleService. A nil cache disables caching.
func NewRoleService(db *gorm.DB, authzCache *cache.AuthorizationCache, audit *AuditService) (*RoleService, error) {
	if db == nil {
		return nil, errors.New("role service: db is required")
	}
	if authzCache == nil {
		authzCache = cache.NewAuthorizationCache(nil, 0)
	}
	return &RoleService{db: db, cache: authzCache, audit: audit}, nil
}

// CreateRoleInput describes the payload accepted by CreateRole.
type CreateRoleInput struct {
	Name             string       `json:"name" validate:"required,notblank,max=191"`
	Description      string       `json:"description" validate:"max=1024"`
	Realm            models.Realm `json:"realm" validate:"required,oneof=admin app"`
	AssignToNewUsers bool         `json:"assign_to_new_users"`
	IsDefault        bool         `json:"is_default"`
	PermissionIDs    []string     `json:"permission_ids"`
}

// UpdateRoleInput describes mutable fields on a role. Nil fields are left untouched.
type UpdateRoleInput struct {
	Name             *string       `json:"name" validate:"omitempty,notblank,max=191"`
	Description      *string       `json:"description" validate:"omitempty,max=1024"`
	Realm            *models.Realm `json:"realm"`
	Order            *int          `json:"order" validate:"omitempty,min=1"`
	AssignToNewUsers *bool         `json:"assign_to_new_users"`
}

// CreateRole registers a role with at least one permission of the same realm.
func (s *RoleService) CreateRole(ctx context.Context, input CreateRoleInput) (role *models.Role, err error) {
	ctx = ensureContext(ctx)
	defer func() { observeMutation("role.create", err) }()

	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	permissionIDs := normaliseIDs(input.PermissionIDs)
	if len(permissionIDs) == 0 {
		return nil, apperrors.NewValidation("at least one permission required")
	}

	created := models.Role{
		Name:             input.Name,
		Description:      strings.TrimSpace(input.Description),
		Realm:            input.Realm,
		AssignToNewUsers: input.AssignToNewUsers,
		IsDefault:        input.IsDefault,
	}

	err = createWithOrderRetry(s.db.WithContext(ctx), &models.Role{}, created.Name, func(tx *gorm.DB) error {
		taken, err := nameTaken(tx, &models.Role{}, created.Name, "")
		if err != nil {
			return err
		}
		if taken {
			return apperrors.NewDuplicateName(created.Name)
		}

		perms, err := loadPermissionsInRealm(tx, permissionIDs, created.Realm)
		if err != nil {
			return err
		}

		order, err := database.NextOrder(tx, &models.Role{}, created.Realm)
		if err != nil {
			return err
		}
		created.Order = order

		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		pairs := make([]models.RolePermission, 0, len(perms))
		for _, perm := range perms {
			pairs = append(pairs, models.RolePermission{RoleID: created.ID, PermissionID: perm.ID})
		}
		if err := insertRolePermissions(tx, pairs); err != nil {
			return err
		}
		created.Permissions = perms
		return nil
	})
	if err != nil {
		return nil, translateWriteError(s.db.WithContext(ctx), &models.Role{}, "role service", "create role", created.Name, "", err)
	}

	if err := s.cache.Invalidate(ctx, cache.RolesKey(created.Realm)); err != nil {
		return nil, err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "role.create",
		Resource: created.ID,
		Result:   "success",
		Metadata: map[string]any{
			"name":           created.Name,
			"realm":          created.Realm,
			"permission_ids": permissionIDs,
		},
	})

	return &created, nil
}

// UpdateRole changes name, description, order or the new-user flag. The realm is immutable.
func (s *RoleService) UpdateRole(ctx context.Context, roleID string, input UpdateRoleInput) (role *models.Role, err error) {
	ctx = ensureContext(ctx)
	defer func() { observeMutation("role.update", err) }()

	if err := validateInput(input); err != nil {
		return nil, err
	}

	var current models.Role
	updates := map[string]any{}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findRole(tx, roleID, &current); err != nil {
			return err
		}

		if input.Realm != nil && *input.Realm != current.Realm {
			return apperrors.NewValidation("realm is immutable")
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name != current.Name {
				if current.IsSystem {
					return ErrSystemRoleImmutable
				}
				taken, err := nameTaken(tx, &models.Role{}, name, current.ID)
				if err != nil {
					return err
				}
				if taken {
					return apperrors.NewDuplicateName(name)
				}
				updates["name"] = name
			}
		}
		if input.Description != nil && strings.TrimSpace(*input.Description) != current.Description {
			updates["description"] = strings.TrimSpace(*input.Description)
		}
		if input.Order != nil && *input.Order != current.Order {
			taken, err := orderTaken(tx, &models.Role{}, current.Realm, *input.Order, current.ID)
			if err != nil {
				return err
			}
			if taken {
				return apperrors.NewValidation(fmt.Sprintf("order %d is already used in the %s realm", *input.Order, current.Realm))
			}
			updates["sort_order"] = *input.Order
		}
		if input.AssignToNewUsers != nil && *input.AssignToNewUsers != current.AssignToNewUsers {
			updates["assign_to_new_users"] = *input.AssignToNewUsers
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&current).Updates(updates).Error; err != nil {
			return err
		}
		return findRole(tx, current.ID, &current)
	})
	if err != nil {
		return nil, translateWriteError(s.db.WithContext(ctx), &models.Role{}, "role service", "update role", strings.TrimSpace(ptrValue(input.Name)), roleID, err)
	}

	if len(updates) > 0 {
		if err := s.cache.Invalidate(ctx, cache.RolesKey(current.Realm)); err != nil {
			return nil, err
		}
		recordAudit(s.audit, ctx, AuditEntry{
			Action:   "role.update",
			Resource: current.ID,
			Result:   "success",
			Metadata: updates,
		})
	}

	return s.GetRole(ctx, current.ID)
}

// DeleteRole removes a role together with its permission grants and user assignments.
func (s *RoleService) DeleteRole(ctx context.Context, roleID string) (err error) {
	ctx = ensureContext(ctx)
	defer func() { observeMutation("role.delete", err) }()

	var (
		role models.Role
		keys []string
	)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findRole(tx, roleID, &role); err != nil {
			return err
		}
		if role.IsSystem {
			return ErrSystemRoleImmutable
		}

		var err error
		keys, err = holderKeys(tx, []string{role.ID})
		if err != nil {
			return err
		}

		var holders []string
		if role.Realm == models.RealmAdmin {
			if err := tx.Model(&models.UserRole{}).Where("role_id = ?", role.ID).Distinct().Pluck("user_id", &holders).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("role_id = ?", role.ID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", role.ID).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&role).Error; err != nil {
			return err
		}
		return syncAdminFlag(tx, holders...)
	})
	if err != nil {
		return wrapServiceError("role service", "delete role", err)
	}

	if err := s.cache.Invalidate(ctx, append(keys, cache.RolesKey(role.Realm))...); err != nil {
		return err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "role.delete",
		Resource: role.ID,
		Result:   "success",
		Metadata: map[string]any{"name": role.Name, "realm": role.Realm},
	})
	return nil
}

// SetRolePermissions replaces the role's permission set wholesale in one transaction.
func (s *RoleService) SetRolePermissions(ctx context.Context, roleID string, permissionIDs []string) (err error) {
	ctx = ensureContext(ctx)
	defer func() { observeMutation("role.set_permissions", err) }()

	ids := normaliseIDs(permissionIDs)
	if len(ids) == 0 {
		return apperrors.NewValidation("at least one permission required")
	}

	var (
		role models.Role
		keys []string
	)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findRole(tx, roleID, &role); err != nil {
			return err
		}
		perms, err := loadPermissionsInRealm(tx, ids, role.Realm)
		if err != nil {
			return err
		}
		keys, err = holderKeys(tx, []string{role.ID})
		if err != nil {
			return err
		}

		if err := tx.Where("role_id = ?", role.ID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		pairs := make([]models.RolePermission, 0, len(perms))
		for _, perm := range perms {
			pairs = append(pairs, models.RolePermission{RoleID: role.ID, PermissionID: perm.ID})
		}
		return insertRolePermissions(tx, pairs)
	})
	if err != nil {
		return wrapServiceError("role service", "set role permissions", err)
	}

	if err := s.cache.Invalidate(ctx, append(keys, cache.RolesKey(role.Realm))...); err != nil {
		return err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "role.set_permissions",
		Resource: role.ID,
		Result:   "success",
		Metadata: map[string]any{"permission_ids": ids},
	})
	return nil
}

// GetRole returns a role with its permissions.
func (s *RoleService) GetRole(ctx context.Context, roleID string) (*models.Role, error) {
	ctx = ensureContext(ctx)

	var role models.Role
	db := s.db.WithContext(ctx)
	if err := findRole(db, roleID, &role); err != nil {
		return nil, wrapServiceError("role service", "get role", err)
	}

	roles := []models.Role{role}
	if err := attachPermissions(db, roles); err != nil {
		return nil, fmt.Errorf("role service: %w", err)
	}
	return &roles[0], nil
}

// ListRoles returns the roles of realm in display order. Listings are cached per realm.
func (s *RoleService) ListRoles(ctx context.Context, realm models.Realm) ([]models.Role, error) {
	ctx = ensureContext(ctx)

	if !realm.Valid() {
		return nil, apperrors.NewValidation("realm must be admin or app")
	}

	return s.cache.Roles(ctx, realm, func(ctx context.Context) ([]models.Role, error) {
		db := s.db.WithContext(ctx)

		var roles []models.Role
		if err := db.Where("realm = ?", realm).Order("sort_order ASC").Find(&roles).Error; err != nil {
			return nil, fmt.Errorf("role service: list roles: %w", err)
		}
		if err := attachPermissions(db, roles); err != nil {
			return nil, fmt.Errorf("role service: %w", err)
		}
		return roles, nil
	})
}

func findRole(tx *gorm.DB, roleID string, role *models.Role) error {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return apperrors.NewNotFound("role not found")
	}
	if err := tx.Take(role, "id = ?", roleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFound("role not found")
		}
		return err
	}
	return nil
}
