package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenantguard/internal/permissions"
	appErrors "github.com/charlesng35/tenantguard/pkg/errors"
	"github.com/charlesng35/tenantguard/pkg/response"
)

// MeHandler answers authorization questions about the caller, for UI rendering.
type MeHandler struct {
	gate *permissions.Gate
}

func NewMeHandler(gate *permissions.Gate) (*MeHandler, error) {
	if gate == nil {
		return nil, errors.New("me handler: gate is required")
	}
	return &MeHandler{gate: gate}, nil
}

// GET /api/me/permissions?tenant=<id>
func (h *MeHandler) Permissions(c *gin.Context) {
	userID := actorID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	tenantID := tenantQuery(c)
	set, err := h.gate.Resolver().Resolve(requestContext(c), userID, tenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"tenant_id": tenantID, "permissions": set.Names()})
}

// GET /api/me/permissions/check?name=<permission>&tenant=<id>
func (h *MeHandler) Check(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		response.Error(c, appErrors.NewBadRequest("name is required"))
		return
	}

	allowed, err := h.gate.HasPermission(requestContext(c), name, tenantQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"name": name, "allowed": allowed})
}
