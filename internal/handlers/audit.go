package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenantguard/internal/services"
	appErrors "github.com/charlesng35/tenantguard/pkg/errors"
	"github.com/charlesng35/tenantguard/pkg/response"
)

type AuditHandler struct {
	svc *services.AuditService
}

func NewAuditHandler(svc *services.AuditService) (*AuditHandler, error) {
	if svc == nil {
		return nil, errors.New("audit handler: service is required")
	}
	return &AuditHandler{svc: svc}, nil
}

// GET /api/admin/audit
func (h *AuditHandler) List(c *gin.Context) {
	filters := services.AuditFilters{
		UserID:   c.Query("user_id"),
		TenantID: c.Query("tenant_id"),
		Action:   c.Query("action"),
		Resource: c.Query("resource"),
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.NewBadRequest("since must be an RFC3339 timestamp"))
			return
		}
		filters.Since = &since
	}

	logs, err := h.svc.List(requestContext(c), filters, parseIntQuery(c, "limit", 50))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, logs)
}
