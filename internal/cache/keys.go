package cache

import (
	"strings"

	"github.com/charlesng35/tenantguard/internal/models"
)

// Key namespaces. The literal forms are shared with other deployments reading the same store.
const (
	NamespacePermission = "permission"
	NamespaceRoles      = "roles"
	NamespaceUserRoles  = "userRoles"

	nullTenant = "null"
)

// PermissionKey addresses a permission looked up by name.
func PermissionKey(name string) string {
	return NamespacePermission + ":" + name
}

// RolesKey addresses the role listing of a realm.
func RolesKey(realm models.Realm) string {
	return NamespaceRoles + ":" + string(realm)
}

// UserRolesKey addresses the resolved permission names of a user in a tenant, or in the admin realm
// when tenantID is nil.
func UserRolesKey(userID string, tenantID *string) string {
	tenant := nullTenant
	if tenantID != nil {
		tenant = *tenantID
	}
	return NamespaceUserRoles + ":" + userID + ":" + tenant
}

func namespaceOf(key string) string {
	if idx := strings.IndexByte(key, ':'); idx > 0 {
		return key[:idx]
	}
	return key
}
