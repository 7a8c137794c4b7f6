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

type AuditHandler struct {
	svc *services.AuditService
}

func NewAuditHandler(svc *services.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// GET /api/audit
func (h *AuditHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	var filters services.AuditFilters
	filters.UserID = c.Query("user_id")
	filters.Action = c.Query("action")
	filters.Result = c.Query("result")
	filters.Resource = c.Query("resource")

	var ok bool
	if filters.Since, ok = parseTimeQuery(c, "since"); !ok {
		return
	}
	if filters.Until, ok = parseTimeQuery(c, "until"); !ok {
		return
	}

	logs, total, err := h.svc.List(requestContext(c), services.AuditListOptions{Page: page, PageSize: perPage, Filters: filters})
	if err != nil {
		response.Error(c, err)
		return
	}

	page, perPage = services.PageBounds(page, perPage)
	response.SuccessWithMeta(c, http.StatusOK, logs, response.NewMeta(page, perPage, total))
}

// parseTimeQuery reads an optional RFC3339 query parameter, writing a 400 on
// malformed input.
func parseTimeQuery(c *gin.Context, key string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		response.Error(c, appErrors.NewBadRequest(key+" must be an RFC3339 timestamp"))
		return nil, false
	}
	t = t.UTC()
	return &t, true
}
