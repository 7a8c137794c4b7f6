package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/picketer/internal/handlers/testutil"
	"github.com/charlesng35/picketer/internal/models"
)

func TestHealthEndpoint(t *testing.T) {
	env := testutil.NewEnv(t)

	for _, path := range []string{"/health", "/api/health"} {
		resp := env.Request(http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusOK, resp.Code, path)

		var body map[string]any
		testutil.DecodeInto(t, resp.Body.Bytes(), &body)
		require.Equal(t, "ok", body["status"])
	}
}

func TestAuditEndpoint(t *testing.T) {
	env := testutil.NewEnv(t)
	_, adminToken := env.CreateUser("admin@example.com", models.RoleAdmin)
	_, memberToken := env.CreateUser("member@example.com", models.RolePicketer)

	require.Equal(t, http.StatusCreated, env.Request(http.MethodPost, "/api/invite", map[string]string{
		"email": "a@example.com",
		"role":  models.RolePicketer,
	}, adminToken).Code)

	require.Equal(t, http.StatusForbidden, env.Request(http.MethodGet, "/api/audit", nil, memberToken).Code)

	resp := env.Request(http.MethodGet, "/api/audit?action=invitation.issue&per_page=10", nil, adminToken)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	decoded := testutil.DecodeResponse(t, resp)
	require.NotNil(t, decoded.Meta)

	var logs []models.AuditLog
	testutil.DecodeInto(t, decoded.Data, &logs)
	require.Len(t, logs, 1)

	bad := env.Request(http.MethodGet, "/api/audit?since=yesterday", nil, adminToken)
	require.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestUnknownRouteAndHeaders(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodGet, "/api/nothing-here", nil, "")
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Equal(t, "NOT_FOUND", testutil.DecodeResponse(t, resp).Error.Code)
	require.NotEmpty(t, resp.Header().Get("X-Request-ID"))
	require.Equal(t, "nosniff", resp.Header().Get("X-Content-Type-Options"))

	req, err := http.NewRequest(http.MethodOptions, "/api/posts", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	preflight := env.Do(req, "")
	require.Equal(t, http.StatusNoContent, preflight.Code)
	require.Equal(t, "*", preflight.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityAuditEndpoint(t *testing.T) {
	env := testutil.NewEnv(t)
	_, adminToken := env.CreateUser("admin@example.com", models.RoleAdmin)
	_, memberToken := env.CreateUser("member@example.com", models.RolePicketer)

	require.Equal(t, http.StatusForbidden, env.Request(http.MethodGet, "/api/security/audit", nil, memberToken).Code)

	resp := env.Request(http.MethodGet, "/api/security/audit", nil, adminToken)
	require.Equal(t, http.StatusOK, resp.Code)

	var result struct {
		Checks []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"checks"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &result)
	require.NotEmpty(t, result.Checks)

	statuses := map[string]string{}
	for _, check := range result.Checks {
		statuses[check.ID] = check.Status
	}
	require.Equal(t, "pass", statuses["admin_present"])
	require.Equal(t, "warn", statuses["cors_origins"])
}

func TestRouterRegistersResourceRoutes(t *testing.T) {
	env := testutil.NewEnv(t)

	registered := make(map[string]bool)
	for _, route := range env.Router.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, route := range []string{
		"POST /api/posts",
		"GET /api/posts",
		"GET /api/posts/archive",
		"PUT /api/posts/archive/:id",
		"GET /api/posts/:id",
		"DELETE /api/posts/:id",
		"POST /api/report",
		"GET /api/report",
		"GET /api/report/:id",
		"POST /api/report/:id/email",
		"GET /api/subscribe/key",
		"POST /api/subscribe",
		"DELETE /api/subscribe",
		"GET /api/audit",
		"GET /api/security/audit",
	} {
		require.True(t, registered[route], route)
	}
}
