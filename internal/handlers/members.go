package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenantguard/internal/services"
	"github.com/charlesng35/tenantguard/pkg/response"
)

// MemberHandler serves /api/tenants/:tenantID/members. Role changes go through the
// super-user policy, with the caller as actor.
type MemberHandler struct {
	svc *services.TenantAccessService
}

func NewMemberHandler(svc *services.TenantAccessService) (*MemberHandler, error) {
	if svc == nil {
		return nil, errors.New("member handler: service is required")
	}
	return &MemberHandler{svc: svc}, nil
}

// GET /api/tenants/:tenantID/members/:userID/roles
func (h *MemberHandler) ListRoles(c *gin.Context) {
	roles, err := h.svc.ListTenantRoles(requestContext(c), c.Param("userID"), c.Param("tenantID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, roles)
}

// POST /api/tenants/:tenantID/members/:userID/roles
func (h *MemberHandler) GrantRole(c *gin.Context) {
	var body struct {
		RoleID string `json:"role_id"`
	}
	if !bindJSON(c, &body) {
		return
	}
	id, err := h.svc.GrantTenantRole(requestContext(c), c.Param("userID"), body.RoleID, c.Param("tenantID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"id": id})
}

// PUT /api/tenants/:tenantID/members/:userID/roles
func (h *MemberHandler) SetRoles(c *gin.Context) {
	var body struct {
		RoleIDs []string `json:"role_ids"`
	}
	if !bindJSON(c, &body) {
		return
	}
	if err := h.svc.SetTenantRoles(requestContext(c), actorID(c), c.Param("userID"), c.Param("tenantID"), body.RoleIDs); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// DELETE /api/tenants/:tenantID/members/:userID/roles/:roleID
func (h *MemberHandler) RevokeRole(c *gin.Context) {
	if err := h.svc.RevokeTenantRole(requestContext(c), actorID(c), c.Param("userID"), c.Param("roleID"), c.Param("tenantID")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
