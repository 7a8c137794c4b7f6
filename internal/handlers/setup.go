package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/picketer/internal/services"
	"github.com/charlesng35/picketer/pkg/response"
)

// SetupHandler creates the first administrator on an empty installation.
type SetupHandler struct {
	users  *services.UserService
	tokens services.TokenIssuer
}

func NewSetupHandler(users *services.UserService, tokens services.TokenIssuer) *SetupHandler {
	return &SetupHandler{users: users, tokens: tokens}
}

// GET /api/setup/status
func (h *SetupHandler) Status(c *gin.Context) {
	count, err := h.users.Count(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"initialized": count > 0})
}

// POST /api/setup/initialize
func (h *SetupHandler) Initialize(c *gin.Context) {
	var req services.BootstrapInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.Bootstrap(requestContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"user": user, "token": token})
}
