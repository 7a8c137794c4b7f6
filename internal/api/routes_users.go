package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/picketer/internal/handlers"
)

func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler, requireAuth, adminOnly gin.HandlerFunc) {
	users := api.Group("/users", requireAuth)
	{
		users.POST("", adminOnly, handler.Create)
		users.GET("", adminOnly, handler.List)
		users.GET("/archive", adminOnly, handler.ListArchived)
		users.PUT("/archive/:id", adminOnly, handler.Archive)
		users.PUT("/profile", handler.UpdateProfile)
		users.GET("/user/:id", handler.Get)
		users.PUT("/user/:id", adminOnly, handler.Update)
		users.DELETE("/user/:id", adminOnly, handler.Delete)
	}
}
