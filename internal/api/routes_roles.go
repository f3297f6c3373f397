package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenantguard/internal/handlers"
	"github.com/charlesng35/tenantguard/internal/middleware"
	"github.com/charlesng35/tenantguard/internal/permissions"
)

func registerRoleRoutes(admin *gin.RouterGroup, deps Dependencies) error {
	h, err := handlers.NewRoleHandler(deps.Roles)
	if err != nil {
		return err
	}

	roles := admin.Group("/roles")
	{
		roles.GET("", middleware.RequirePermission(deps.Gate, permissions.AdminRolesView), h.List)
		roles.GET("/:id", middleware.RequirePermission(deps.Gate, permissions.AdminRolesView), h.Get)
		roles.POST("", middleware.RequirePermission(deps.Gate, permissions.AdminRolesCreate), h.Create)
		roles.PATCH("/:id", middleware.RequirePermission(deps.Gate, permissions.AdminRolesUpdate), h.Update)
		roles.DELETE("/:id", middleware.RequirePermission(deps.Gate, permissions.AdminRolesDelete), h.Delete)
		roles.PUT("/:id/permissions", middleware.RequirePermission(deps.Gate, permissions.AdminRolesUpdate), h.SetPermissions)
	}
	return nil
}
