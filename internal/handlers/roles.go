package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenantguard/internal/models"
	"github.com/charlesng35/tenantguard/internal/services"
	"github.com/charlesng35/tenantguard/pkg/response"
)

// RoleHandler serves /api/admin/roles.
type RoleHandler struct {
	svc *services.RoleService
}

func NewRoleHandler(svc *services.RoleService) (*RoleHandler, error) {
	if svc == nil {
		return nil, errors.New("role handler: service is required")
	}
	return &RoleHandler{svc: svc}, nil
}

// GET /api/admin/roles?realm=admin|app
func (h *RoleHandler) List(c *gin.Context) {
	realm, ok := realmQuery(c)
	if !ok {
		return
	}
	if realm == "" {
		// Both realms, admin first.
		admin, err := h.svc.ListRoles(requestContext(c), models.RealmAdmin)
		if err != nil {
			response.Error(c, err)
			return
		}
		app, err := h.svc.ListRoles(requestContext(c), models.RealmApp)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, append(admin, app...))
		return
	}

	roles, err := h.svc.ListRoles(requestContext(c), realm)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, roles)
}

// GET /api/admin/roles/:id
func (h *RoleHandler) Get(c *gin.Context) {
	role, err := h.svc.GetRole(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// POST /api/admin/roles
func (h *RoleHandler) Create(c *gin.Context) {
	var body services.CreateRoleInput
	if !bindJSON(c, &body) {
		return
	}
	role, err := h.svc.CreateRole(requestContext(c), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, role)
}

// PATCH /api/admin/roles/:id
func (h *RoleHandler) Update(c *gin.Context) {
	var body services.UpdateRoleInput
	if !bindJSON(c, &body) {
		return
	}
	role, err := h.svc.UpdateRole(requestContext(c), c.Param("id"), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// DELETE /api/admin/roles/:id
func (h *RoleHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteRole(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// PUT /api/admin/roles/:id/permissions
func (h *RoleHandler) SetPermissions(c *gin.Context) {
	var body struct {
		PermissionIDs []string `json:"permission_ids"`
	}
	if !bindJSON(c, &body) {
		return
	}
	if err := h.svc.SetRolePermissions(requestContext(c), c.Param("id"), body.PermissionIDs); err != nil {
		response.Error(c, err)
		return
	}
	role, err := h.svc.GetRole(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}
