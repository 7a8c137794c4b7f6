package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/picketer/internal/security"
	"github.com/charlesng35/picketer/pkg/response"
)

// SecurityHandler reports the deployment's security posture to administrators.
type SecurityHandler struct {
	posture *security.PostureService
}

func NewSecurityHandler(posture *security.PostureService) *SecurityHandler {
	return &SecurityHandler{posture: posture}
}

// GET /api/security/audit
func (h *SecurityHandler) Audit(c *gin.Context) {
	response.Success(c, http.StatusOK, h.posture.Run(requestContext(c)))
}
