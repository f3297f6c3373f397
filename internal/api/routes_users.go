package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenantguard/internal/handlers"
	"github.com/charlesng35/tenantguard/internal/middleware"
	"github.com/charlesng35/tenantguard/internal/permissions"
)

func registerUserRoleRoutes(admin *gin.RouterGroup, deps Dependencies) error {
	h, err := handlers.NewUserRoleHandler(deps.UserRoles, deps.Tenants)
	if err != nil {
		return err
	}

	view := middleware.RequirePermission(deps.Gate, permissions.AdminUserRolesView)
	update := middleware.RequirePermission(deps.Gate, permissions.AdminUserRolesUpdate)

	userRoles := admin.Group("/users/:userID/roles")
	{
		userRoles.GET("", view, h.List)
		userRoles.POST("", update, h.Grant)
		userRoles.PUT("", update, h.Replace)
		userRoles.POST("/defaults", update, h.AssignDefaults)
		userRoles.DELETE("/:roleID", update, h.Revoke)
	}
	return nil
}
