package middleware

import (
	"context"
	"slices"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/picketer/internal/auditctx"
	"github.com/charlesng35/picketer/pkg/errors"
	"github.com/charlesng35/picketer/pkg/logger"
	"github.com/charlesng35/picketer/pkg/metrics"
	"github.com/charlesng35/picketer/pkg/response"
)

// RoleLookup resolves the current role of an account.
type RoleLookup interface {
	RoleOf(ctx context.Context, userID string) (string, error)
}

// RequireRole admits only accounts whose stored role is one of roles. The role
// is read from the database on every request so demotions apply immediately.
// A failed lookup is treated as unauthenticated.
func RequireRole(lookup RoleLookup, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		if userID == "" {
			metrics.RoleChecks.WithLabelValues("error").Inc()
			unauthorized(c)
			return
		}

		role, err := lookup.RoleOf(c.Request.Context(), userID)
		if err != nil {
			metrics.RoleChecks.WithLabelValues("error").Inc()
			logger.WithModule("auth").Debug("role lookup failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			unauthorized(c)
			return
		}

		if !slices.Contains(roles, role) {
			metrics.RoleChecks.WithLabelValues("deny").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		metrics.RoleChecks.WithLabelValues("allow").Inc()
		c.Set(CtxRoleKey, role)
		c.Request = c.Request.WithContext(auditctx.WithRole(c.Request.Context(), role))
		c.Next()
	}
}
