package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/picketer/internal/services"
	appErrors "github.com/charlesng35/picketer/pkg/errors"
	"github.com/charlesng35/picketer/pkg/response"
)

// SubscriptionHandler registers browser push subscriptions.
type SubscriptionHandler struct {
	subscriptions *services.SubscriptionService
	publicKey     string
}

func NewSubscriptionHandler(subscriptions *services.SubscriptionService, publicKey string) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions, publicKey: publicKey}
}

// POST /api/subscribe
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.SubscribeInput
	if !bindJSON(c, &req) {
		return
	}

	sub, err := h.subscriptions.Subscribe(requestContext(c), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, sub)
}

// DELETE /api/subscribe
func (h *SubscriptionHandler) Unsubscribe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if !bindJSON(c, &req) {
		return
	}

	if err := h.subscriptions.Unsubscribe(requestContext(c), userID, req.Endpoint); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unsubscribed": true})
}

// GET /api/subscribe/key
func (h *SubscriptionHandler) PublicKey(c *gin.Context) {
	if h.publicKey == "" {
		response.Error(c, appErrors.ErrNotFound.WithMessage("Push notifications are not configured"))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"public_key": h.publicKey})
}
