package permissions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/tenantguard/internal/cache"
	"github.com/charlesng35/tenantguard/internal/models"
)

// PermissionSet is the de-duplicated set of permission names a user holds in one realm.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from names, collapsing duplicates.
func NewPermissionSet(names ...string) PermissionSet {
	set := make(PermissionSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s PermissionSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns a sorted copy for display. Membership checks should use Has.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolver walks user -> roles -> permissions for exactly one realm per call.
type Resolver struct {
	db    *gorm.DB
	cache *cache.AuthorizationCache
}

// NewResolver constructs a resolver. A nil cache disables caching.
func NewResolver(db *gorm.DB, authzCache *cache.AuthorizationCache) (*Resolver, error) {
	if db == nil {
		return nil, errors.New("permission resolver: db is required")
	}
	if authzCache == nil {
		authzCache = cache.NewAuthorizationCache(nil, 0)
	}
	return &Resolver{db: db, cache: authzCache}, nil
}

// Resolve returns the permission names userID holds in tenantID, or in the admin realm when
// tenantID is nil. A user without matching assignments yields an empty set, never an error.
func (r *Resolver) Resolve(ctx context.Context, userID string, tenantID *string) (PermissionSet, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("permission resolver: user id is required")
	}

	names, err := r.cache.UserPermissions(ctx, userID, tenantID, func(ctx context.Context) ([]string, error) {
		return r.loadNames(ctx, userID, tenantID)
	})
	if err != nil {
		return nil, err
	}
	return NewPermissionSet(names...), nil
}

// LookupPermission finds a catalog entry by name. It returns nil without error when the name is unknown.
func (r *Resolver) LookupPermission(ctx context.Context, name string) (*models.Permission, error) {
	return r.cache.Permission(ctx, name, func(ctx context.Context) (*models.Permission, error) {
		var perm models.Permission
		err := r.db.WithContext(ctx).Where("name = ?", name).Take(&perm).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("permission resolver: lookup %s: %w", name, err)
		}
		return &perm, nil
	})
}

func (r *Resolver) loadNames(ctx context.Context, userID string, tenantID *string) ([]string, error) {
	realm := models.RealmForTenant(tenantID)

	query := r.db.WithContext(ctx).
		Table("user_roles").
		Distinct("permissions.name").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Joins("JOIN role_permissions ON role_permissions.role_id = roles.id").
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Where("user_roles.user_id = ?", userID).
		Where("roles.realm = ?", realm)

	if tenantID == nil {
		query = query.Where("user_roles.tenant_id IS NULL")
	} else {
		query = query.Where("user_roles.tenant_id = ?", *tenantID)
	}

	var names []string
	if err := query.Pluck("permissions.name", &names).Error; err != nil {
		return nil, fmt.Errorf("permission resolver: resolve %s: %w", userID, err)
	}
	return names, nil
}
