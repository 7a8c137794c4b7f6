package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/picketer/internal/middleware"
	"github.com/charlesng35/picketer/internal/services"
	"github.com/charlesng35/picketer/pkg/response"
)

// UserHandler serves account administration and the caller's own profile.
type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var req services.CreateUserInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.Create(requestContext(c), middleware.Role(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(requestContext(c), c.Query("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, users)
}

// GET /api/users/archive
func (h *UserHandler) ListArchived(c *gin.Context) {
	users, err := h.users.ListArchived(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, users)
}

// PUT /api/users/archive/:id
func (h *UserHandler) Archive(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	archived, err := h.users.Archive(requestContext(c), actorID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, archived)
}

// GET /api/users/user/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// PUT /api/users/user/:id
func (h *UserHandler) Update(c *gin.Context) {
	var req services.UpdateUserInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.Update(requestContext(c), middleware.Role(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// PUT /api/users/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.ProfileInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.UpdateProfile(requestContext(c), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// DELETE /api/users/user/:id
func (h *UserHandler) Delete(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.users.Delete(requestContext(c), actorID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
