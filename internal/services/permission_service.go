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

// PermissionService manages the permission catalog and the roles each permission is granted to.
type PermissionService struct {
	db    *gorm.DB
	cache *cache.AuthorizationCache
	audit *AuditService
}

// NewPermissionService constructs a PermissionService using the provided database handle.
func NewPermissionService(db *gorm.DB, authzCache *cache.AuthorizationCache, audit *AuditService) (*PermissionService, error) {
	if db == nil {
		return nil, errors.New("permission service: db is required")
	}
	if authzCache == nil {
		authzCache = cache.NewAuthorizationCache(nil, 0)
	}
	return &PermissionService{db: db, cache: authzCache, audit: audit}, nil
}

// CreatePermissionInput describes the payload accepted by CreatePermission.
type CreatePermissionInput struct {
	Name        string       `json:"name" validate:"required,notblank,max=191"`
	Description string       `json:"description" validate:"max=1024"`
	Realm       models.Realm `json:"realm" validate:"required,oneof=admin app"`
	IsDefault   bool         `json:"is_default"`
	RoleIDs     []string     `json:"role_ids"`
}

// UpdatePermissionInput describes mutable fields on a permission. Nil fields are left untouched.
type UpdatePermissionInput struct {
	Name        *string       `json:"name" validate:"omitempty,notblank,max=191"`
	Description *string       `json:"description" validate:"omitempty,max=1024"`
	Realm       *models.Realm `json:"realm"`
	Order       *int          `json:"order" validate:"omitempty,min=1"`
	IsDefault   *bool         `json:"is_default"`
}

// CreatePermission adds a catalog entry granted to at least one role of the same realm.
func (s *PermissionService) CreatePermission(ctx context.Context, input CreatePermissionInput) (perm *models.Permission, err error) {
	ctx = ensureContext(ctx)
	defer func() { observeMutation("permission.create", err) }()

	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	roleIDs := normaliseIDs(input.RoleIDs)
	if len(roleIDs) == 0 {
		return nil, apperrors.NewValidation("at least one role required")
	}

	created := models.Permission{
		Name:        input.Name,
		Description: strings.TrimSpace(input.Description),
		Realm:       input.Realm,
		IsDefault:   input.IsDefault,
	}
	var keys []string

	err = createWithOrderRetry(s.db.WithContext(ctx), &models.Permission{}, created.Name, func(tx *gorm.DB) error {
		taken, err := nameTaken(tx, &models.Permission{}, created.Name, "")
		if err != nil {
			return err
		}
		if taken {
			return apperrors.NewDuplicateName(created.Name)
		}

		if _, err := loadRolesInRealm(tx, roleIDs, created.Realm); err != nil {
			return err
		}
		keys, err = holderKeys(tx, roleIDs)
		if err != nil {
			return err
		}

		order, err := database.NextOrder(tx, &models.Permission{}, created.Realm)
		if err != nil {
			return err
		}
		created.Order = order

		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		pairs := make([]models.RolePermission, 0, len(roleIDs))
		for _, roleID := range roleIDs {
			pairs = append(pairs, models.RolePermission{RoleID: roleID, PermissionID: created.ID})
		}
		return insertRolePermissions(tx, pairs)
	})
	if err != nil {
		return nil, translateWriteError(s.db.WithContext(ctx), &models.Permission{}, "permission service", "create permission", created.Name, "", err)
	}

	keys = append(keys, cache.PermissionKey(created.Name), cache.RolesKey(created.Realm))
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		return nil, err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "permission.create",
		Resource: created.ID,
		Result:   "success",
		Metadata: map[string]any{
			"name":     created.Name,
			"realm":    created.Realm,
			"role_ids": roleIDs,
		},
	})

	return &created, nil
}

// UpdatePermission changes name, description, order or the default flag. The realm is immutable.
// A rename invalidates lookups under both the old and the new name.
func (s *PermissionService) UpdatePermission(ctx context.Context, permissionID string, input UpdatePermissionInput) (perm *models.Permission, err error) {
	ctx = ensureContext(ctx)
	defer func() { observeMutation("permission.update", err) }()

	if err := validateInput(input); err != nil {
		return nil, err
	}

	var (
		current models.Permission
		oldName string
		keys    []string
	)
	updates := map[string]any{}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findPermission(tx, permissionID, &current); err != nil {
			return err
		}
		oldName = current.Name

		if input.Realm != nil && *input.Realm != current.Realm {
			return apperrors.NewValidation("realm is immutable")
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name != current.Name {
				taken, err := nameTaken(tx, &models.Permission{}, name, current.ID)
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
			taken, err := orderTaken(tx, &models.Permission{}, current.Realm, *input.Order, current.ID)
			if err != nil {
				return err
			}
			if taken {
				return apperrors.NewValidation(fmt.Sprintf("order %d is already used in the %s realm", *input.Order, current.Realm))
			}
			updates["sort_order"] = *input.Order
		}
		if input.IsDefault != nil && *input.IsDefault != current.IsDefault {
			updates["is_default"] = *input.IsDefault
		}

		if len(updates) == 0 {
			return nil
		}

		if _, renamed := updates["name"]; renamed {
			roleIDs, err := rolesHoldingPermission(tx, current.ID)
			if err != nil {
				return err
			}
			keys, err = holderKeys(tx, roleIDs)
			if err != nil {
				return err
			}
		}

		if err := tx.Model(&current).Updates(updates).Error; err != nil {
			return err
		}
		return findPermission(tx, current.ID, &current)
	})
	if err != nil {
		return nil, translateWriteError(s.db.WithContext(ctx), &models.Permission{}, "permission service", "update permission", strings.TrimSpace(ptrValue(input.Name)), permissionID, err)
	}

	if len(updates) == 0 {
		return &current, nil
	}

	keys = append(keys,
		cache.PermissionKey(oldName),
		cache.PermissionKey(current.Name),
		cache.RolesKey(current.Realm),
	)
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		return nil, err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "permission.update",
		Resource: current.ID,
		Result:   "success",
		Metadata: updates,
	})

	return &current, nil
}

// DeletePermission removes a catalog entry and its grants.
func (s *PermissionService) DeletePermission(ctx context.Context, permissionID string) (err error) {
	ctx = ensureContext(ctx)
	defer func() { observeMutation("permission.delete", err) }()

	var (
		perm models.Permission
		keys []string
	)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findPermission(tx, permissionID, &perm); err != nil {
			return err
		}
		roleIDs, err := rolesHoldingPermission(tx, perm.ID)
		if err != nil {
			return err
		}
		keys, err = holderKeys(tx, roleIDs)
		if err != nil {
			return err
		}

		if err := tx.Where("permission_id = ?", perm.ID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&perm).Error
	})
	if err != nil {
		return wrapServiceError("permission service", "delete permission", err)
	}

	keys = append(keys, cache.PermissionKey(perm.Name), cache.RolesKey(perm.Realm))
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		return err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "permission.delete",
		Resource: perm.ID,
		Result:   "success",
		Metadata: map[string]any{"name": perm.Name, "realm": perm.Realm},
	})
	return nil
}

// SetPermissionRoles replaces the set of roles granted the permission in one transaction.
func (s *PermissionService) SetPermissionRoles(ctx context.Context, permissionID string, roleIDs []string) (err error) {
	ctx = ensureContext(ctx)
	defer func() { observeMutation("permission.set_roles", err) }()

	ids := normaliseIDs(roleIDs)
	if len(ids) == 0 {
		return apperrors.NewValidation("at least one role required")
	}

	var (
		perm models.Permission
		keys []string
	)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findPermission(tx, permissionID, &perm); err != nil {
			return err
		}
		if _, err := loadRolesInRealm(tx, ids, perm.Realm); err != nil {
			return err
		}

		previous, err := rolesHoldingPermission(tx, perm.ID)
		if err != nil {
			return err
		}
		keys, err = holderKeys(tx, normaliseIDs(append(previous, ids...)))
		if err != nil {
			return err
		}

		if err := tx.Where("permission_id = ?", perm.ID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		pairs := make([]models.RolePermission, 0, len(ids))
		for _, roleID := range ids {
			pairs = append(pairs, models.RolePermission{RoleID: roleID, PermissionID: perm.ID})
		}
		return insertRolePermissions(tx, pairs)
	})
	if err != nil {
		return wrapServiceError("permission service", "set permission roles", err)
	}

	if err := s.cache.Invalidate(ctx, append(keys, cache.RolesKey(perm.Realm))...); err != nil {
		return err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "permission.set_roles",
		Resource: perm.ID,
		Result:   "success",
		Metadata: map[string]any{"role_ids": ids},
	})
	return nil
}

// GetPermission returns a permission by id.
func (s *PermissionService) GetPermission(ctx context.Context, permissionID string) (*models.Permission, error) {
	ctx = ensureContext(ctx)

	var perm models.Permission
	if err := findPermission(s.db.WithContext(ctx), permissionID, &perm); err != nil {
		return nil, wrapServiceError("permission service", "get permission", err)
	}
	return &perm, nil
}

// GetPermissionByName returns a permission by its stable name. Lookups are cached by name.
func (s *PermissionService) GetPermissionByName(ctx context.Context, name string) (*models.Permission, error) {
	ctx = ensureContext(ctx)

	perm, err := s.cache.Permission(ctx, name, func(ctx context.Context) (*models.Permission, error) {
		var found models.Permission
		err := s.db.WithContext(ctx).Where("name = ?", name).Take(&found).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("permission service: get permission by name: %w", err)
		}
		return &found, nil
	})
	if err != nil {
		return nil, err
	}
	if perm == nil {
		return nil, apperrors.NewNotFound("permission not found")
	}
	return perm, nil
}

// ListPermissions returns the catalog in display order. An empty realm lists both realms.
func (s *PermissionService) ListPermissions(ctx context.Context, realm models.Realm) ([]models.Permission, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Permission{})
	if realm != "" {
		if !realm.Valid() {
			return nil, apperrors.NewValidation("realm must be admin or app")
		}
		query = query.Where("realm = ?", realm)
	}

	var perms []models.Permission
	if err := query.Order("realm ASC").Order("sort_order ASC").Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("permission service: list permissions: %w", err)
	}
	return perms, nil
}

func findPermission(tx *gorm.DB, permissionID string, perm *models.Permission) error {
	permissionID = strings.TrimSpace(permissionID)
	if permissionID == "" {
		return apperrors.NewNotFound("permission not found")
	}
	if err := tx.Take(perm, "id = ?", permissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFound("permission not found")
		}
		return err
	}
	return nil
}
