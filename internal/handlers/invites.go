package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/picketer/internal/middleware"
	"github.com/charlesng35/picketer/internal/services"
	"github.com/charlesng35/picketer/pkg/response"
)

// InviteHandler exposes invitation issuance and invitation-gated registration.
type InviteHandler struct {
	invites *services.InvitationService
}

func NewInviteHandler(invites *services.InvitationService) *InviteHandler {
	return &InviteHandler{invites: invites}
}

type createInviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// POST /api/invite
func (h *InviteHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req createInviteRequest
	if !bindJSON(c, &req) {
		return
	}

	issuer := services.Issuer{ID: userID, Role: middleware.Role(c)}
	ref, err := h.invites.Issue(requestContext(c), issuer, req.Email, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, ref)
}

// GET /api/invite
func (h *InviteHandler) List(c *gin.Context) {
	refs, err := h.invites.List(requestContext(c), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, refs)
}

// DELETE /api/invite/:id
func (h *InviteHandler) Revoke(c *gin.Context) {
	if err := h.invites.Revoke(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// GET /api/invite/:token
func (h *InviteHandler) Lookup(c *gin.Context) {
	ref, err := h.invites.Lookup(requestContext(c), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"email":      ref.Email,
		"role":       ref.Role,
		"expires_at": ref.ExpiresAt,
	})
}

// POST /api/invite/register/:token
func (h *InviteHandler) Register(c *gin.Context) {
	var req services.RegistrationInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.invites.Redeem(requestContext(c), c.Param("token"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}
