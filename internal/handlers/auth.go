package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/picketer/internal/services"
	"github.com/charlesng35/picketer/pkg/response"
)

// AuthHandler signs users in with email and password.
type AuthHandler struct {
	users  *services.UserService
	tokens services.TokenIssuer
}

func NewAuthHandler(users *services.UserService, tokens services.TokenIssuer) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// POST /api/auth
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.Authenticate(requestContext(c), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, tokenResponse{Token: token})
}

// GET /api/auth
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := currentUser(c, h.users)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, user)
}
