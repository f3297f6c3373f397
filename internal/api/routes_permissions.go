package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenantguard/internal/handlers"
	"github.com/charlesng35/tenantguard/internal/middleware"
	"github.com/charlesng35/tenantguard/internal/permissions"
)

func registerPermissionRoutes(admin *gin.RouterGroup, deps Dependencies) error {
	h, err := handlers.NewPermissionHandler(deps.Permissions)
	if err != nil {
		return err
	}

	perms := admin.Group("/permissions")
	{
		perms.GET("", middleware.RequirePermission(deps.Gate, permissions.AdminPermissionsView), h.List)
		perms.GET("/:id", middleware.RequirePermission(deps.Gate, permissions.AdminPermissionsView), h.Get)
		perms.POST("", middleware.RequirePermission(deps.Gate, permissions.AdminPermissionsCreate), h.Create)
		perms.PATCH("/:id", middleware.RequirePermission(deps.Gate, permissions.AdminPermissionsUpdate), h.Update)
		perms.DELETE("/:id", middleware.RequirePermission(deps.Gate, permissions.AdminPermissionsDelete), h.Delete)
		perms.PUT("/:id/roles", middleware.RequirePermission(deps.Gate, permissions.AdminPermissionsUpdate), h.SetRoles)
	}
	return nil
}
