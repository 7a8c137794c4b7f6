package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/picketer/internal/app"
	"github.com/charlesng35/picketer/internal/handlers"
)

func registerHealthRoutes(r *gin.Engine, cfg *app.Config, deps Dependencies) {
	if !cfg.Monitoring.Health.Enabled {
		r.GET("/health", disabledHealthHandler)
		return
	}

	checks := map[string]handlers.Pinger{}
	if deps.Redis != nil {
		checks["redis"] = deps.Redis
	}
	health := handlers.Health(deps.DB, checks)
	r.GET("/health", health)
	r.GET("/api/health", health)
}

func registerMetricsRoutes(r *gin.Engine, cfg *app.Config) {
	if !cfg.Monitoring.Prometheus.Enabled {
		return
	}
	r.GET(metricsEndpoint(cfg), gin.WrapH(promhttp.Handler()))
}

func metricsEndpoint(cfg *app.Config) string {
	if endpoint := cfg.Monitoring.Prometheus.Endpoint; endpoint != "" {
		return endpoint
	}
	return "/metrics"
}

func disabledHealthHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
}
