package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenantguard/internal/monitoring"
	"github.com/charlesng35/tenantguard/pkg/response"
)

// Health runs the readiness checks. It answers 503 once any dependency is down.
func Health(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := manager.Evaluate(requestContext(c))
		if !report.Healthy() {
			c.JSON(http.StatusServiceUnavailable, response.Response{
				Success: false,
				Data:    report,
				Error:   &response.ErrorInfo{Code: "UNAVAILABLE", Message: "dependency check failed"},
			})
			return
		}
		response.Success(c, http.StatusOK, report)
	}
}
