package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/picketer/internal/handlers"
)

func registerSubscriptionRoutes(api *gin.RouterGroup, handler *handlers.SubscriptionHandler, requireAuth gin.HandlerFunc) {
	api.GET("/subscribe/key", handler.PublicKey)
	api.POST("/subscribe", requireAuth, handler.Subscribe)
	api.DELETE("/subscribe", requireAuth, handler.Unsubscribe)
}
