package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const healthTimeout = 2 * time.Second

// Pinger is a dependency whose reachability is part of the health report.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports whether the database and optional dependencies respond.
// Unreachable dependencies yield 503.
func Health(db *gorm.DB, deps map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(requestContext(c), healthTimeout)
		defer cancel()

		checks := gin.H{}
		healthy := true

		if err := pingDatabase(ctx, db); err != nil {
			checks["database"] = err.Error()
			healthy = false
		} else {
			checks["database"] = "ok"
		}

		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = err.Error()
				healthy = false
				continue
			}
			checks[name] = "ok"
		}

		status := http.StatusOK
		label := "ok"
		if !healthy {
			status = http.StatusServiceUnavailable
			label = "degraded"
		}
		c.JSON(status, gin.H{
			"success":    healthy,
			"status":     label,
			"checks":     checks,
			"checked_at": time.Now().UTC(),
		})
	}
}

func pingDatabase(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return gorm.ErrInvalidDB
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
