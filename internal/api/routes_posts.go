package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/picketer/internal/handlers"
)

func registerPostRoutes(api *gin.RouterGroup, handler *handlers.PostHandler, requireAuth gin.HandlerFunc) {
	posts := api.Group("/posts", requireAuth)
	{
		posts.POST("", handler.Create)
		posts.GET("", handler.List)
		posts.GET("/archive", handler.ListArchived)
		posts.PUT("/archive/:id", handler.Archive)
		posts.GET("/:id", handler.Get)
		posts.DELETE("/:id", handler.Delete)
	}
}
