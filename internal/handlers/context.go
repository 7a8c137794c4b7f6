package handlers

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/picketer/internal/middleware"
	"github.com/charlesng35/picketer/internal/models"
	appErrors "github.com/charlesng35/picketer/pkg/errors"
	"github.com/charlesng35/picketer/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUserID returns the authenticated account id. It writes a 401 and
// returns false when the route was mounted without Auth.
func currentUserID(c *gin.Context) (string, bool) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return userID, true
}

type userLoader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// currentUser loads the authenticated account. An account deleted after its
// token was issued is treated as unauthenticated.
func currentUser(c *gin.Context, users userLoader) (*models.User, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return nil, false
	}
	user, err := users.GetByID(requestContext(c), userID)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			response.Error(c, appErrors.ErrUnauthorized)
			return nil, false
		}
		response.Error(c, err)
		return nil, false
	}
	return user, true
}
