package permissions

import "github.com/charlesng35/tenantguard/internal/models"

// Permission names checked by the HTTP surface.
const (
	AdminRolesView         = "admin.roles.view"
	AdminRolesCreate       = "admin.roles.create"
	AdminRolesUpdate       = "admin.roles.update"
	AdminRolesDelete       = "admin.roles.delete"
	AdminPermissionsView   = "admin.permissions.view"
	AdminPermissionsCreate = "admin.permissions.create"
	AdminPermissionsUpdate = "admin.permissions.update"
	AdminPermissionsDelete = "admin.permissions.delete"
	AdminUserRolesView     = "admin.users.roles.view"
	AdminUserRolesUpdate   = "admin.users.roles.update"
	AdminAuditView         = "admin.audit.view"
	AdminSecurityView      = "admin.security.view"

	AppMembersView        = "app.members.view"
	AppMembersRolesUpdate = "app.members.roles.update"
)

func init() {
	MustRegister(
		Definition{Name: AdminRolesView, Realm: models.RealmAdmin, Description: "View roles", IsDefault: true},
		Definition{Name: AdminRolesCreate, Realm: models.RealmAdmin, Description: "Create roles"},
		Definition{Name: AdminRolesUpdate, Realm: models.RealmAdmin, Description: "Update roles and their permission sets"},
		Definition{Name: AdminRolesDelete, Realm: models.RealmAdmin, Description: "Delete roles"},
		Definition{Name: AdminPermissionsView, Realm: models.RealmAdmin, Description: "View the permission catalog", IsDefault: true},
		Definition{Name: AdminPermissionsCreate, Realm: models.RealmAdmin, Description: "Create permissions"},
		Definition{Name: AdminPermissionsUpdate, Realm: models.RealmAdmin, Description: "Update permissions and their role sets"},
		Definition{Name: AdminPermissionsDelete, Realm: models.RealmAdmin, Description: "Delete permissions"},
		Definition{Name: AdminUserRolesView, Realm: models.RealmAdmin, Description: "View the roles granted to a user"},
		Definition{Name: AdminUserRolesUpdate, Realm: models.RealmAdmin, Description: "Grant and revoke user roles"},
		Definition{Name: AdminAuditView, Realm: models.RealmAdmin, Description: "Read the RBAC audit trail"},
		Definition{Name: AdminSecurityView, Realm: models.RealmAdmin, Description: "Run the authorization posture audit"},

		Definition{Name: AppMembersView, Realm: models.RealmApp, Description: "View tenant members and their roles", IsDefault: true},
		Definition{Name: AppMembersRolesUpdate, Realm: models.RealmApp, Description: "Change the roles of tenant members"},
	)
}
