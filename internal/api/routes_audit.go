package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenantguard/internal/handlers"
	"github.com/charlesng35/tenantguard/internal/middleware"
	"github.com/charlesng35/tenantguard/internal/permissions"
	"github.com/charlesng35/tenantguard/internal/security"
)

func registerAuditRoutes(admin *gin.RouterGroup, deps Dependencies) error {
	h, err := handlers.NewAuditHandler(deps.Audit)
	if err != nil {
		return err
	}
	admin.GET("/audit", middleware.RequirePermission(deps.Gate, permissions.AdminAuditView), h.List)

	posture, err := handlers.NewSecurityHandler(security.NewAuditor(deps.DB, deps.JWT, deps.Tenants.SuperUserRole()))
	if err != nil {
		return err
	}
	admin.GET("/security/audit", middleware.RequirePermission(deps.Gate, permissions.AdminSecurityView), posture.Audit)
	return nil
}
