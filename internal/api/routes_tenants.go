package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenantguard/internal/handlers"
	"github.com/charlesng35/tenantguard/internal/middleware"
	"github.com/charlesng35/tenantguard/internal/permissions"
)

func registerTenantRoutes(api *gin.RouterGroup, deps Dependencies) error {
	h, err := handlers.NewMemberHandler(deps.Tenants)
	if err != nil {
		return err
	}

	view := middleware.RequireTenantPermission(deps.Gate, permissions.AppMembersView)
	update := middleware.RequireTenantPermission(deps.Gate, permissions.AppMembersRolesUpdate)

	tenant := api.Group("/tenants/:"+middleware.TenantParam, middleware.Tenant(deps.Tenants))
	members := tenant.Group("/members/:userID/roles")
	{
		members.GET("", view, h.ListRoles)
		members.POST("", update, h.GrantRole)
		members.PUT("", update, h.SetRoles)
		members.DELETE("/:roleID", update, h.RevokeRole)
	}
	return nil
}
