package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/picketer/internal/auth"
)

// Context keys set by the middleware chain.
const (
	CtxClaimsKey    = "authClaims"
	CtxUserIDKey    = "userID"
	CtxRoleKey      = "userRole"
	CtxRequestIDKey = "requestID"
)

// UserID returns the authenticated account id, or "" outside Auth.
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserIDKey)
}

// Role returns the role resolved by RequireRole, or "".
func Role(c *gin.Context) string {
	return c.GetString(CtxRoleKey)
}

// Claims returns the verified token claims.
func Claims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}
