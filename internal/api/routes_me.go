package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tenantguard/internal/handlers"
)

func registerMeRoutes(api *gin.RouterGroup, deps Dependencies) error {
	h, err := handlers.NewMeHandler(deps.Gate)
	if err != nil {
		return err
	}

	me := api.Group("/me")
	{
		me.GET("/permissions", h.Permissions)
		me.GET("/permissions/check", h.Check)
	}
	return nil
}
