package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenantguard/internal/sessionctx"
	"github.com/charlesng35/tenantguard/pkg/errors"
	"github.com/charlesng35/tenantguard/pkg/response"
)

// TenantParam names the path segment carrying the tenant id.
const TenantParam = "tenantID"

// CtxTenantIDKey holds the verified tenant id on the gin context.
const CtxTenantIDKey = "tenantID"

var errBadTenant = errors.NewBadRequest("tenant id is required")

// TenantFinder reports whether a tenant exists.
type TenantFinder interface {
	TenantExists(ctx context.Context, tenantID string) (bool, error)
}

// Tenant resolves the tenant from the path, rejects unknown ids and scopes the session to it.
// It must run after Auth.
func Tenant(finder TenantFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := strings.TrimSpace(c.Param(TenantParam))
		if tenantID == "" {
			response.Error(c, errBadTenant)
			c.Abort()
			return
		}

		exists, err := finder.TenantExists(c.Request.Context(), tenantID)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if !exists {
			response.Error(c, errors.NewNotFound("tenant not found"))
			c.Abort()
			return
		}

		c.Set(CtxTenantIDKey, tenantID)
		c.Request = c.Request.WithContext(sessionctx.WithTenant(c.Request.Context(), tenantID))
		c.Next()
	}
}

// TenantFromContext returns the tenant verified by Tenant, if any.
func TenantFromContext(c *gin.Context) *string {
	value := c.GetString(CtxTenantIDKey)
	if value == "" {
		return nil
	}
	return &value
}
