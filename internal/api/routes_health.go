package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenantguard/internal/handlers"
	"github.com/charlesng35/tenantguard/internal/monitoring"
	"github.com/charlesng35/tenantguard/internal/monitoring/checks"
)

func registerHealthRoutes(r *gin.Engine, deps Dependencies) {
	manager := monitoring.NewHealthManager(
		checks.Database(deps.DB, 0),
		checks.Cache(deps.Cache, 0),
	)

	health := handlers.Health(manager)
	r.GET("/health", health)
	r.GET("/api/health", health)
}
