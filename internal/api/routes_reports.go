package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/picketer/internal/handlers"
)

func registerReportRoutes(api *gin.RouterGroup, handler *handlers.ReportHandler, requireAuth, adminOnly gin.HandlerFunc) {
	report := api.Group("/report", requireAuth)
	{
		report.POST("", handler.Create)
		report.GET("", handler.List)
		report.GET("/:id", handler.Get)
		report.POST("/:id/email", adminOnly, handler.Email)
	}
}
