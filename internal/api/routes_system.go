package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/picketer/internal/handlers"
)

func registerAuditRoutes(api *gin.RouterGroup, handler *handlers.AuditHandler, requireAuth, adminOnly gin.HandlerFunc) {
	api.GET("/audit", requireAuth, adminOnly, handler.List)
}

func registerSecurityRoutes(api *gin.RouterGroup, handler *handlers.SecurityHandler, requireAuth, adminOnly gin.HandlerFunc) {
	api.GET("/security/audit", requireAuth, adminOnly, handler.Audit)
}
