package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/picketer/internal/services"
	appErrors "github.com/charlesng35/picketer/pkg/errors"
	"github.com/charlesng35/picketer/pkg/response"
)

// PostHandler serves picket announcements.
type PostHandler struct {
	posts *services.PostService
	users *services.UserService
}

func NewPostHandler(posts *services.PostService, users *services.UserService) *PostHandler {
	return &PostHandler{posts: posts, users: users}
}

// POST /api/posts
func (h *PostHandler) Create(c *gin.Context) {
	author, ok := currentUser(c, h.users)
	if !ok {
		return
	}

	var req services.PostInput
	if !bindJSON(c, &req) {
		return
	}

	post, err := h.posts.Create(requestContext(c), author, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, post)
}

// GET /api/posts?date=YYYY-MM-DD|location=...
func (h *PostHandler) List(c *gin.Context) {
	var filter services.PostFilter
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		day, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			response.Error(c, appErrors.NewBadRequest("date must use the YYYY-MM-DD format"))
			return
		}
		filter.Date = &day
	}
	filter.Location = c.Query("location")

	posts, err := h.posts.List(requestContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, posts)
}

// GET /api/posts/archive
func (h *PostHandler) ListArchived(c *gin.Context) {
	posts, err := h.posts.ListArchived(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, posts)
}

// PUT /api/posts/archive/:id
func (h *PostHandler) Archive(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}
	archived, err := h.posts.Archive(requestContext(c), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, archived)
}

// GET /api/posts/:id
func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.posts.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, post)
}

// DELETE /api/posts/:id
func (h *PostHandler) Delete(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.posts.Delete(requestContext(c), actorID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
