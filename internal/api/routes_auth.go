package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/picketer/internal/handlers"
)

func registerAuthRoutes(api *gin.RouterGroup, handler *handlers.AuthHandler, requireAuth, rateLimited gin.HandlerFunc) {
	api.POST("/auth", rateLimited, handler.Login)
	api.GET("/auth", requireAuth, handler.Me)
}

func registerSetupRoutes(api *gin.RouterGroup, handler *handlers.SetupHandler, rateLimited gin.HandlerFunc) {
	api.GET("/setup/status", handler.Status)
	api.POST("/setup/initialize", rateLimited, handler.Initialize)
}

func registerInviteRoutes(api *gin.RouterGroup, handler *handlers.InviteHandler, requireAuth, adminOnly, rateLimited gin.HandlerFunc) {
	invite := api.Group("/invite")
	{
		invite.POST("", requireAuth, adminOnly, handler.Create)
		invite.GET("", requireAuth, adminOnly, handler.List)
		invite.DELETE("/:id", requireAuth, adminOnly, handler.Revoke)
		invite.GET("/:token", handler.Lookup)
		invite.POST("/register/:token", rateLimited, handler.Register)
	}
}
