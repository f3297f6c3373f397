package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenantguard/internal/services"
	"github.com/charlesng35/tenantguard/pkg/response"
)

// PermissionHandler serves /api/admin/permissions.
type PermissionHandler struct {
	svc *services.PermissionService
}

func NewPermissionHandler(svc *services.PermissionService) (*PermissionHandler, error) {
	if svc == nil {
		return nil, errors.New("permission handler: service is required")
	}
	return &PermissionHandler{svc: svc}, nil
}

// GET /api/admin/permissions?realm=admin|app
func (h *PermissionHandler) List(c *gin.Context) {
	realm, ok := realmQuery(c)
	if !ok {
		return
	}
	perms, err := h.svc.ListPermissions(requestContext(c), realm)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perms)
}

// GET /api/admin/permissions/:id
func (h *PermissionHandler) Get(c *gin.Context) {
	perm, err := h.svc.GetPermission(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perm)
}

// POST /api/admin/permissions
func (h *PermissionHandler) Create(c *gin.Context) {
	var body services.CreatePermissionInput
	if !bindJSON(c, &body) {
		return
	}
	perm, err := h.svc.CreatePermission(requestContext(c), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, perm)
}

// PATCH /api/admin/permissions/:id
func (h *PermissionHandler) Update(c *gin.Context) {
	var body services.UpdatePermissionInput
	if !bindJSON(c, &body) {
		return
	}
	perm, err := h.svc.UpdatePermission(requestContext(c), c.Param("id"), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perm)
}

// DELETE /api/admin/permissions/:id
func (h *PermissionHandler) Delete(c *gin.Context) {
	if err := h.svc.DeletePermission(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// PUT /api/admin/permissions/:id/roles
func (h *PermissionHandler) SetRoles(c *gin.Context) {
	var body struct {
		RoleIDs []string `json:"role_ids"`
	}
	if !bindJSON(c, &body) {
		return
	}
	if err := h.svc.SetPermissionRoles(requestContext(c), c.Param("id"), body.RoleIDs); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": true})
}
