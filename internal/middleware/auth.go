package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/picketer/internal/auditctx"
	"github.com/charlesng35/picketer/internal/auth"
	"github.com/charlesng35/picketer/pkg/errors"
	"github.com/charlesng35/picketer/pkg/logger"
	"github.com/charlesng35/picketer/pkg/metrics"
	"github.com/charlesng35/picketer/pkg/response"
)

// TokenHeader is the alternative header existing clients send the session token in.
const TokenHeader = "x-auth-token"

// TokenVerifier validates session tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Auth rejects requests without a valid session token. The token is taken
// from "Authorization: Bearer" first, then from the x-auth-token header.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = strings.TrimSpace(c.GetHeader(TokenHeader))
		}
		if token == "" {
			metrics.TokenRejections.WithLabelValues("missing").Inc()
			unauthorized(c)
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			reason := auth.Reason(err)
			metrics.TokenRejections.WithLabelValues(reason).Inc()
			logger.WithModule("auth").Debug("session token rejected",
				zap.String("reason", reason),
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			unauthorized(c)
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID())

		ctx := auditctx.WithActor(c.Request.Context(), auditctx.Actor{
			UserID:    claims.UserID(),
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func bearerToken(header string) string {
	if len(header) < 8 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	response.Error(c, errors.ErrUnauthorized)
	c.Abort()
}
