package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenantguard/internal/security"
	"github.com/charlesng35/tenantguard/pkg/response"
)

type SecurityHandler struct {
	auditor *security.Auditor
}

func NewSecurityHandler(auditor *security.Auditor) (*SecurityHandler, error) {
	if auditor == nil {
		return nil, errors.New("security handler: auditor is required")
	}
	return &SecurityHandler{auditor: auditor}, nil
}

// GET /api/admin/security/audit
func (h *SecurityHandler) Audit(c *gin.Context) {
	response.Success(c, http.StatusOK, h.auditor.Run(requestContext(c)))
}
