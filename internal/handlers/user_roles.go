package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenantguard/internal/services"
	"github.com/charlesng35/tenantguard/pkg/response"
)

// UserRoleHandler serves /api/admin/users/:userID/roles. Removals go through the tenant
// policy so the admin surface cannot strip a tenant of its last super user.
type UserRoleHandler struct {
	svc     *services.UserRoleService
	tenants *services.TenantAccessService
}

func NewUserRoleHandler(svc *services.UserRoleService, tenants *services.TenantAccessService) (*UserRoleHandler, error) {
	if svc == nil {
		return nil, errors.New("user role handler: service is required")
	}
	if tenants == nil {
		return nil, errors.New("user role handler: tenant access service is required")
	}
	return &UserRoleHandler{svc: svc, tenants: tenants}, nil
}

type grantRequest struct {
	RoleID   string  `json:"role_id"`
	TenantID *string `json:"tenant_id"`
}

// GET /api/admin/users/:userID/roles?tenant=<id>
func (h *UserRoleHandler) List(c *gin.Context) {
	assignments, err := h.svc.ListUserRoles(requestContext(c), c.Param("userID"), tenantQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, assignments)
}

// POST /api/admin/users/:userID/roles
func (h *UserRoleHandler) Grant(c *gin.Context) {
	var body grantRequest
	if !bindJSON(c, &body) {
		return
	}
	id, err := h.svc.CreateUserRole(requestContext(c), services.UserRoleInput{
		UserID:   c.Param("userID"),
		RoleID:   body.RoleID,
		TenantID: body.TenantID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"id": id})
}

// DELETE /api/admin/users/:userID/roles/:roleID?tenant=<id>
func (h *UserRoleHandler) Revoke(c *gin.Context) {
	err := h.tenants.RevokeUserRole(requestContext(c), actorID(c), services.UserRoleInput{
		UserID:   c.Param("userID"),
		RoleID:   c.Param("roleID"),
		TenantID: tenantQuery(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// PUT /api/admin/users/:userID/roles replaces every assignment of the user.
func (h *UserRoleHandler) Replace(c *gin.Context) {
	var body struct {
		Assignments []services.Assignment `json:"assignments"`
	}
	if !bindJSON(c, &body) {
		return
	}
	if err := h.tenants.SetUserRoles(requestContext(c), actorID(c), c.Param("userID"), body.Assignments); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// POST /api/admin/users/:userID/roles/defaults grants the new-user roles of a realm.
func (h *UserRoleHandler) AssignDefaults(c *gin.Context) {
	ids, err := h.svc.AssignNewUserRoles(requestContext(c), c.Param("userID"), tenantQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	response.Success(c, http.StatusOK, gin.H{"ids": ids})
}
