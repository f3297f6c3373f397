package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenantguard/internal/permissions"
	"github.com/charlesng35/tenantguard/pkg/response"
)

// RequirePermission checks an admin-realm permission for the caller.
func RequirePermission(gate *permissions.Gate, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := gate.VerifyHasPermission(c.Request.Context(), name, nil); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireTenantPermission checks an app-realm permission in the tenant selected by Tenant.
// Without a verified tenant the request is refused.
func RequireTenantPermission(gate *permissions.Gate, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := TenantFromContext(c)
		if tenantID == nil {
			response.Error(c, errBadTenant)
			c.Abort()
			return
		}
		if err := gate.VerifyHasPermission(c.Request.Context(), name, tenantID); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
