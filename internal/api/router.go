package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/charlesng35/tenantguard/internal/auth"
	"github.com/charlesng35/tenantguard/internal/cache"
	"github.com/charlesng35/tenantguard/internal/middleware"
	"github.com/charlesng35/tenantguard/internal/permissions"
	"github.com/charlesng35/tenantguard/internal/services"
)

// Dependencies are the wired components the HTTP surface serves.
type Dependencies struct {
	DB          *gorm.DB
	JWT         *iauth.JWTService
	Gate        *permissions.Gate
	Roles       *services.RoleService
	Permissions *services.PermissionService
	UserRoles   *services.UserRoleService
	Tenants     *services.TenantAccessService
	Audit       *services.AuditService
	// Cache is checked by the health endpoint; nil reports degraded.
	Cache cache.Store
}

func (d Dependencies) validate() error {
	switch {
	case d.DB == nil:
		return errors.New("router: database handle must be provided")
	case d.JWT == nil:
		return errors.New("router: jwt service must be provided")
	case d.Gate == nil:
		return errors.New("router: permission gate must be provided")
	case d.Roles == nil || d.Permissions == nil || d.UserRoles == nil || d.Tenants == nil || d.Audit == nil:
		return errors.New("router: rbac services must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	registerHealthRoutes(r, deps)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.JWT))

	admin := api.Group("/admin")
	if err := registerRoleRoutes(admin, deps); err != nil {
		return nil, err
	}
	if err := registerPermissionRoutes(admin, deps); err != nil {
		return nil, err
	}
	if err := registerUserRoleRoutes(admin, deps); err != nil {
		return nil, err
	}
	if err := registerAuditRoutes(admin, deps); err != nil {
		return nil, err
	}
	if err := registerMeRoutes(api, deps); err != nil {
		return nil, err
	}
	if err := registerTenantRoutes(api, deps); err != nil {
		return nil, err
	}

	r.NoRoute(middleware.NotFoundHandler)
	return r, nil
}
