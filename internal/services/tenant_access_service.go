package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/tenantguard/internal/database"
	"github.com/charlesng35/tenantguard/internal/models"
	apperrors "github.com/charlesng35/tenantguard/pkg/errors"
)

var (
	errLastSuperUser = apperrors.NewPolicy("at least one super user required")
	errOwnSuperUser  = apperrors.NewPolicy("cannot remove own super user role")

	errSuperUserRoleMissing = errors.New("super user role is not provisioned")
)

// TenantAccessService applies tenant membership policy on top of the assignment primitives.
// The designated super-user role may never lose its last holder in a tenant, and an actor may
// not remove their own.
type TenantAccessService struct {
	db            *gorm.DB
	userRoles     *UserRoleService
	superUserRole string
}

// NewTenantAccessService constructs the policy layer. An empty superUserRole selects the default name.
func NewTenantAccessService(db *gorm.DB, userRoles *UserRoleService, superUserRole string) (*TenantAccessService, error) {
	if db == nil {
		return nil, errors.New("tenant access service: db is required")
	}
	if userRoles == nil {
		return nil, errors.New("tenant access service: user role service is required")
	}
	superUserRole = strings.TrimSpace(superUserRole)
	if superUserRole == "" {
		superUserRole = database.DefaultSuperUserRole
	}
	return &TenantAccessService{db: db, userRoles: userRoles, superUserRole: superUserRole}, nil
}

// SuperUserRole names the protected tenant role.
func (s *TenantAccessService) SuperUserRole() string {
	return s.superUserRole
}

// GrantTenantRole assigns an app-realm role to userID in tenantID.
func (s *TenantAccessService) GrantTenantRole(ctx context.Context, userID, roleID, tenantID string) (string, error) {
	return s.userRoles.CreateUserRole(ctx, UserRoleInput{UserID: userID, RoleID: roleID, TenantID: &tenantID})
}

// RevokeTenantRole removes roleID from userID in tenantID on behalf of actorID.
func (s *TenantAccessService) RevokeTenantRole(ctx context.Context, actorID, userID, roleID, tenantID string) error {
	ctx = ensureContext(ctx)

	actorID = strings.TrimSpace(actorID)
	userID = strings.TrimSpace(userID)
	tenantID = strings.TrimSpace(tenantID)
	roleID = strings.TrimSpace(roleID)

	guard := func(tx *gorm.DB) error {
		superID, err := s.superUserRoleID(tx)
		if err != nil || superID != roleID {
			return err
		}
		holds, err := holdsRole(tx, userID, superID, tenantID)
		if err != nil || !holds {
			return err
		}
		return s.checkSuperUserRemoval(tx, actorID, userID, tenantID, superID)
	}
	return s.userRoles.deleteUserRole(ctx, UserRoleInput{UserID: userID, RoleID: roleID, TenantID: &tenantID}, guard)
}

// RevokeUserRole is the administration form of a revoke. Tenant-scoped assignments go through
// RevokeTenantRole; admin-realm assignments carry no tenant policy.
func (s *TenantAccessService) RevokeUserRole(ctx context.Context, actorID string, input UserRoleInput) error {
	tenantID := normaliseTenant(input.TenantID)
	if tenantID == nil {
		return s.userRoles.DeleteUserRole(ctx, input)
	}
	return s.RevokeTenantRole(ctx, actorID, input.UserID, input.RoleID, *tenantID)
}

// SetTenantRoles replaces the roles of userID in tenantID on behalf of actorID.
func (s *TenantAccessService) SetTenantRoles(ctx context.Context, actorID, userID, tenantID string, roleIDs []string) error {
	ctx = ensureContext(ctx)

	actorID = strings.TrimSpace(actorID)
	userID = strings.TrimSpace(userID)
	tenantID = strings.TrimSpace(tenantID)
	ids := normaliseIDs(roleIDs)

	guard := func(tx *gorm.DB) error {
		superID, err := s.superUserRoleID(tx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if id == superID {
				return nil
			}
		}
		holds, err := holdsRole(tx, userID, superID, tenantID)
		if err != nil || !holds {
			return err
		}
		return s.checkSuperUserRemoval(tx, actorID, userID, tenantID, superID)
	}
	return s.userRoles.setUserTenantRoles(ctx, userID, tenantID, ids, guard)
}

// SetUserRoles replaces every assignment of userID on behalf of actorID. Each tenant in which the
// user holds the super-user role and the replacement drops it is checked like a revoke.
func (s *TenantAccessService) SetUserRoles(ctx context.Context, actorID, userID string, assignments []Assignment) error {
	actorID = strings.TrimSpace(actorID)
	userID = strings.TrimSpace(userID)

	guard := func(tx *gorm.DB) error {
		superID, err := s.superUserRoleID(tx)
		if err != nil {
			return err
		}

		kept := map[string]struct{}{}
		for _, a := range assignments {
			tenantID := normaliseTenant(a.TenantID)
			if tenantID != nil && strings.TrimSpace(a.RoleID) == superID {
				kept[*tenantID] = struct{}{}
			}
		}

		var held []string
		if err := tx.Model(&models.UserRole{}).
			Where("user_id = ? AND role_id = ? AND tenant_id IS NOT NULL", userID, superID).
			Order("tenant_id").
			Pluck("tenant_id", &held).Error; err != nil {
			return fmt.Errorf("load super user tenants: %w", err)
		}
		for _, tenantID := range held {
			if _, ok := kept[tenantID]; ok {
				continue
			}
			if err := s.checkSuperUserRemoval(tx, actorID, userID, tenantID, superID); err != nil {
				return err
			}
		}
		return nil
	}
	return s.userRoles.setUserRoles(ctx, userID, assignments, guard)
}

// ListTenantRoles returns the roles userID holds in tenantID.
func (s *TenantAccessService) ListTenantRoles(ctx context.Context, userID, tenantID string) ([]models.Role, error) {
	assignments, err := s.userRoles.ListUserRoles(ctx, userID, &tenantID)
	if err != nil {
		return nil, err
	}
	roles := make([]models.Role, 0, len(assignments))
	for _, assignment := range assignments {
		if assignment.Role != nil {
			roles = append(roles, *assignment.Role)
		}
	}
	return roles, nil
}

// TenantExists reports whether tenantID names a tenant.
func (s *TenantAccessService) TenantExists(ctx context.Context, tenantID string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ensureContext(ctx)).Model(&models.Tenant{}).
		Where("id = ?", strings.TrimSpace(tenantID)).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("tenant access service: find tenant: %w", err)
	}
	return count > 0, nil
}

func (s *TenantAccessService) superUserHolders(ctx context.Context, tenantID string) (int64, error) {
	db := s.db.WithContext(ensureContext(ctx))
	superID, err := s.superUserRoleID(db)
	if err != nil {
		return 0, err
	}
	return countHolders(db, superID, tenantID)
}

func (s *TenantAccessService) checkSuperUserRemoval(tx *gorm.DB, actorID, userID, tenantID, superID string) error {
	if actorID != "" && actorID == userID {
		return errOwnSuperUser
	}
	holders, err := countHolders(tx, superID, tenantID)
	if err != nil {
		return err
	}
	if holders <= 1 {
		return errLastSuperUser
	}
	return nil
}

// superUserRoleID loads the pinned system role carrying the configured name. A missing role fails
// the mutation instead of silently disabling the policy.
func (s *TenantAccessService) superUserRoleID(tx *gorm.DB) (string, error) {
	var ids []string
	if err := tx.Model(&models.Role{}).
		Where("name = ? AND realm = ? AND is_system = ?", s.superUserRole, models.RealmApp, true).
		Limit(1).
		Pluck("id", &ids).Error; err != nil {
		return "", fmt.Errorf("load super user role: %w", err)
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("%w: %q", errSuperUserRoleMissing, s.superUserRole)
	}
	return ids[0], nil
}

func countHolders(tx *gorm.DB, roleID, tenantID string) (int64, error) {
	var count int64
	if err := tx.Model(&models.UserRole{}).
		Where("role_id = ? AND tenant_id = ?", roleID, tenantID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count role holders: %w", err)
	}
	return count, nil
}

func holdsRole(tx *gorm.DB, userID, roleID, tenantID string) (bool, error) {
	var count int64
	if err := tx.Model(&models.UserRole{}).
		Where("user_id = ? AND role_id = ? AND tenant_id = ?", userID, roleID, tenantID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check role holder: %w", err)
	}
	return count > 0, nil
}
