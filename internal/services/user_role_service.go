package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/tenantguard/internal/cache"
	"github.com/charlesng35/tenantguard/internal/models"
	apperrors "github.com/charlesng35/tenantguard/pkg/errors"
)

// UserRoleInput identifies one (user, role, tenant) assignment. TenantID is nil for admin-realm roles.
type UserRoleInput struct {
	UserID   string  `json:"user_id" validate:"required,notblank"`
	RoleID   string  `json:"role_id" validate:"required,notblank"`
	TenantID *string `json:"tenant_id"`
}

// Assignment is one entry of a full replacement passed to SetUserRoles.
type Assignment struct {
	RoleID   string  `json:"role_id" validate:"required,notblank"`
	TenantID *string `json:"tenant_id"`
}

// assignmentGuard runs inside the mutation transaction before rows change.
type assignmentGuard func(tx *gorm.DB) error

// UserRoleService grants and revokes roles. Every primitive validates the realm/tenant pairing
// and re-derives the user's admin flag on admin-realm changes.
type UserRoleService struct {
	db    *gorm.DB
	cache *cache.AuthorizationCache
	audit *AuditService
}

// NewUserRoleService constructs a UserRoleService. A nil cache disables caching.
func NewUserRoleService(db *gorm.DB, authzCache *cache.AuthorizationCache, audit *AuditService) (*UserRoleService, error) {
	if db == nil {
		return nil, errors.New("user role service: db is required")
	}
	if authzCache == nil {
		authzCache = cache.NewAuthorizationCache(nil, 0)
	}
	return &UserRoleService{db: db, cache: authzCache, audit: audit}, nil
}

// CreateUserRole grants a role. Granting an existing triple returns the existing id.
func (s *UserRoleService) CreateUserRole(ctx context.Context, input UserRoleInput) (id string, err error) {
	ctx = ensureContext(ctx)
	defer func() { observeMutation("user_role.create", err) }()

	input, err = normaliseAssignment(input)
	if err != nil {
		return "", err
	}

	var created bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUser(tx, input.UserID); err != nil {
			return err
		}
		var realm models.Realm
		id, created, realm, err = createAssignment(tx, input)
		if err != nil {
			return err
		}
		if created && realm == models.RealmAdmin {
			return syncAdminFlag(tx, input.UserID)
		}
		return nil
	})
	if err != nil {
		return "", wrapServiceError("user role service", "create user role", err)
	}

	if err := s.cache.Invalidate(ctx, cache.UserRolesKey(input.UserID, input.TenantID)); err != nil {
		return "", err
	}

	if created {
		recordAudit(s.audit, ctx, AuditEntry{
			Action:   "user_role.create",
			Resource: id,
			Result:   "success",
			TenantID: input.TenantID,
			Metadata: map[string]any{"user_id": input.UserID, "role_id": input.RoleID},
		})
	}
	return id, nil
}

// DeleteUserRole revokes a role.
func (s *UserRoleService) DeleteUserRole(ctx context.Context, input UserRoleInput) error {
	return s.deleteUserRole(ctx, input, nil)
}

func (s *UserRoleService) deleteUserRole(ctx context.Context, input UserRoleInput, guard assignmentGuard) (err error) {
	ctx = ensureContext(ctx)
	defer func() { observeMutation("user_role.delete", err) }()

	input, err = normaliseAssignment(input)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := roleForAssignment(tx, input)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(tx); err != nil {
				return err
			}
		}

		result := scopeTenant(tx.Where("user_id = ? AND role_id = ?", input.UserID, input.RoleID), input.TenantID).
			Delete(&models.UserRole{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.NewNotFound("user role not found")
		}
		if role.Realm == models.RealmAdmin {
			return syncAdminFlag(tx, input.UserID)
		}
		return nil
	})
	if err != nil {
		return wrapServiceError("user role service", "delete user role", err)
	}

	if err := s.cache.Invalidate(ctx, cache.UserRolesKey(input.UserID, input.TenantID)); err != nil {
		return err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "user_role.delete",
		Resource: input.RoleID,
		Result:   "success",
		TenantID: input.TenantID,
		Metadata: map[string]any{"user_id": input.UserID, "role_id": input.RoleID},
	})
	return nil
}

// CreateUserRoles grants several roles in one transaction and returns the ids in input order.
// Each distinct (user, tenant) pair is invalidated once.
func (s *UserRoleService) CreateUserRoles(ctx context.Context, inputs []UserRoleInput) (ids []string, err error) {
	ctx = ensureContext(ctx)
	defer func() { observeMutation("user_role.create_bulk", err) }()

	normalised := make([]UserRoleInput, 0, len(inputs))
	for _, input := range inputs {
		input, err := normaliseAssignment(input)
		if err != nil {
			return nil, err
		}
		normalised = append(normalised, input)
	}
	if len(normalised) == 0 {
		return nil, nil
	}

	ids = make([]string, 0, len(normalised))
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var adminUsers []string
		checkedUsers := map[string]struct{}{}
		for _, input := range normalised {
			if _, ok := checkedUsers[input.UserID]; !ok {
				if err := ensureUser(tx, input.UserID); err != nil {
					return err
				}
				checkedUsers[input.UserID] = struct{}{}
			}
			id, _, realm, err := createAssignment(tx, input)
			if err != nil {
				return err
			}
			if realm == models.RealmAdmin {
				adminUsers = append(adminUsers, input.UserID)
			}
			ids = append(ids, id)
		}
		return syncAdminFlag(tx, adminUsers...)
	})
	if err != nil {
		return nil, wrapServiceError("user role service", "create user roles", err)
	}

	keys := make([]string, 0, len(normalised))
	for _, input := range normalised {
		keys = append(keys, cache.UserRolesKey(input.UserID, input.TenantID))
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		return nil, err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "user_role.create_bulk",
		Result:   "success",
		Metadata: map[string]any{"assignment_ids": ids},
	})
	return ids, nil
}

// SetUserRoles replaces every assignment of userID, across realms and tenants, in one transaction.
// The admin flag is derived from the resulting graph.
func (s *UserRoleService) SetUserRoles(ctx context.Context, userID string, assignments []Assignment) error {
	return s.setUserRoles(ctx, userID, assignments, nil)
}

func (s *UserRoleService) setUserRoles(ctx context.Context, userID string, assignments []Assignment, guard assignmentGuard) (err error) {
	ctx = ensureContext(ctx)
	defer func() { observeMutation("user_role.set", err) }()

	userID = strings.TrimSpace(userID)
	inputs := make([]UserRoleInput, 0, len(assignments))
	for _, a := range assignments {
		input, err := normaliseAssignment(UserRoleInput{UserID: userID, RoleID: a.RoleID, TenantID: a.TenantID})
		if err != nil {
			return err
		}
		inputs = append(inputs, input)
	}

	var keys []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUser(tx, userID); err != nil {
			return err
		}
		if guard != nil {
			if err := guard(tx); err != nil {
				return err
			}
		}

		previous, err := tenantsOfUser(tx, userID)
		if err != nil {
			return err
		}
		for _, tenantID := range previous {
			keys = append(keys, cache.UserRolesKey(userID, tenantID))
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		for _, input := range inputs {
			if _, _, _, err := createAssignment(tx, input); err != nil {
				return err
			}
			keys = append(keys, cache.UserRolesKey(userID, input.TenantID))
		}
		return syncAdminFlag(tx, userID)
	})
	if err != nil {
		return wrapServiceError("user role service", "set user roles", err)
	}

	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		return err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "user_role.set",
		Resource: userID,
		Result:   "success",
		Metadata: map[string]any{"assignments": assignments},
	})
	return nil
}

// SetUserTenantRoles replaces the app-realm roles userID holds in tenantID in one transaction.
func (s *UserRoleService) SetUserTenantRoles(ctx context.Context, userID, tenantID string, roleIDs []string) error {
	return s.setUserTenantRoles(ctx, userID, tenantID, roleIDs, nil)
}

func (s *UserRoleService) setUserTenantRoles(ctx context.Context, userID, tenantID string, roleIDs []string, guard assignmentGuard) (err error) {
	ctx = ensureContext(ctx)
	defer func() { observeMutation("user_role.set_tenant", err) }()

	userID = strings.TrimSpace(userID)
	tenantID = strings.TrimSpace(tenantID)
	ids := normaliseIDs(roleIDs)
	if userID == "" || tenantID == "" {
		return apperrors.NewValidation("user id and tenant id are required")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUser(tx, userID); err != nil {
			return err
		}
		if err := ensureTenant(tx, tenantID); err != nil {
			return err
		}
		if guard != nil {
			if err := guard(tx); err != nil {
				return err
			}
		}

		if err := tx.Where("user_id = ? AND tenant_id = ?", userID, tenantID).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		for _, roleID := range ids {
			if _, _, _, err := createAssignment(tx, UserRoleInput{UserID: userID, RoleID: roleID, TenantID: &tenantID}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapServiceError("user role service", "set user tenant roles", err)
	}

	if err := s.cache.Invalidate(ctx, cache.UserRolesKey(userID, &tenantID)); err != nil {
		return err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "user_role.set_tenant",
		Resource: userID,
		Result:   "success",
		TenantID: &tenantID,
		Metadata: map[string]any{"role_ids": ids},
	})
	return nil
}

// AssignNewUserRoles grants every assign_to_new_users role of the realm selected by tenantID.
func (s *UserRoleService) AssignNewUserRoles(ctx context.Context, userID string, tenantID *string) ([]string, error) {
	ctx = ensureContext(ctx)

	tenantID = normaliseTenant(tenantID)
	realm := models.RealmForTenant(tenantID)

	var roleIDs []string
	if err := s.db.WithContext(ctx).Model(&models.Role{}).
		Where("realm = ? AND assign_to_new_users = ?", realm, true).
		Order("sort_order ASC").
		Pluck("id", &roleIDs).Error; err != nil {
		return nil, fmt.Errorf("user role service: load new-user roles: %w", err)
	}

	inputs := make([]UserRoleInput, 0, len(roleIDs))
	for _, roleID := range roleIDs {
		inputs = append(inputs, UserRoleInput{UserID: userID, RoleID: roleID, TenantID: tenantID})
	}
	return s.CreateUserRoles(ctx, inputs)
}

// ListUserRoles returns the assignments of userID in tenantID (admin realm when nil), roles attached.
func (s *UserRoleService) ListUserRoles(ctx context.Context, userID string, tenantID *string) ([]models.UserRole, error) {
	ctx = ensureContext(ctx)
	tenantID = normaliseTenant(tenantID)

	var assignments []models.UserRole
	query := scopeTenant(s.db.WithContext(ctx).Where("user_id = ?", strings.TrimSpace(userID)), tenantID)
	if err := query.Preload("Role").Order("created_at ASC").Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("user role service: list user roles: %w", err)
	}
	return assignments, nil
}

// createAssignment is the single insertion primitive. It reports whether a row was inserted and the
// realm of the role so callers can sync the admin flag.
func createAssignment(tx *gorm.DB, input UserRoleInput) (string, bool, models.Realm, error) {
	role, err := roleForAssignment(tx, input)
	if err != nil {
		return "", false, "", err
	}
	if input.TenantID != nil {
		if err := ensureTenant(tx, *input.TenantID); err != nil {
			return "", false, "", err
		}
	}

	existing, err := findAssignment(tx, input)
	if err != nil {
		return "", false, "", err
	}
	if existing != "" {
		return existing, false, role.Realm, nil
	}

	row := models.UserRole{UserID: input.UserID, RoleID: input.RoleID, TenantID: input.TenantID}
	result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		return "", false, "", result.Error
	}
	if result.RowsAffected == 0 {
		// A concurrent grant won the unique index.
		existing, err := findAssignment(tx, input)
		if err != nil {
			return "", false, "", err
		}
		return existing, false, role.Realm, nil
	}
	return row.ID, true, role.Realm, nil
}

// roleForAssignment loads the role and rejects tenant scoping that does not match its realm.
func roleForAssignment(tx *gorm.DB, input UserRoleInput) (models.Role, error) {
	var role models.Role
	if err := findRole(tx, input.RoleID, &role); err != nil {
		return models.Role{}, err
	}
	switch {
	case role.Realm == models.RealmAdmin && input.TenantID != nil:
		return models.Role{}, apperrors.NewValidation("admin-realm roles cannot be scoped to a tenant")
	case role.Realm == models.RealmApp && input.TenantID == nil:
		return models.Role{}, apperrors.NewValidation("app-realm roles require a tenant")
	}
	return role, nil
}

func findAssignment(tx *gorm.DB, input UserRoleInput) (string, error) {
	var row models.UserRole
	err := scopeTenant(tx.Where("user_id = ? AND role_id = ?", input.UserID, input.RoleID), input.TenantID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.ID, nil
}

// tenantsOfUser lists the distinct tenants a user holds roles in. Admin-realm holdings appear as nil.
func tenantsOfUser(tx *gorm.DB, userID string) ([]*string, error) {
	query := tx.Model(&models.UserRole{}).Where("user_id = ?", userID)

	var rows []struct{ TenantID *string }
	if err := query.Distinct("tenant_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	tenants := make([]*string, 0, len(rows))
	for _, row := range rows {
		tenants = append(tenants, row.TenantID)
	}
	return tenants, nil
}

func scopeTenant(query *gorm.DB, tenantID *string) *gorm.DB {
	if tenantID == nil {
		return query.Where("tenant_id IS NULL")
	}
	return query.Where("tenant_id = ?", *tenantID)
}

func normaliseAssignment(input UserRoleInput) (UserRoleInput, error) {
	input.UserID = strings.TrimSpace(input.UserID)
	input.RoleID = strings.TrimSpace(input.RoleID)
	input.TenantID = normaliseTenant(input.TenantID)
	if err := validateInput(input); err != nil {
		return UserRoleInput{}, err
	}
	return input, nil
}

func ensureUser(tx *gorm.DB, userID string) error {
	return ensureExists(tx, &models.User{}, userID, "user not found")
}

func ensureTenant(tx *gorm.DB, tenantID string) error {
	return ensureExists(tx, &models.Tenant{}, tenantID, "tenant not found")
}

func ensureExists(tx *gorm.DB, model any, id, message string) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperrors.NewNotFound(message)
	}
	return nil
}
