package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/picketer/internal/handlers/testutil"
	"github.com/charlesng35/picketer/internal/models"
)

func TestUserHandler_AdminLifecycle(t *testing.T) {
	env := testutil.NewEnv(t)
	admin, adminToken := env.CreateUser("admin@example.com", models.RoleAdmin)

	created := env.Request(http.MethodPost, "/api/users", map[string]string{
		"name":       "Olga",
		"surname":    "Ivanova",
		"patronymic": "Pavlovna",
		"email":      "olga@example.com",
		"password":   "secret1",
		"role":       models.RolePicketer,
	}, adminToken)
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	var user models.User
	testutil.DecodeInto(t, testutil.DecodeResponse(t, created).Data, &user)
	require.NotEmpty(t, user.ID)

	list := env.Request(http.MethodGet, "/api/users?name=ivanova", nil, adminToken)
	require.Equal(t, http.StatusOK, list.Code)
	var users []models.User
	testutil.DecodeInto(t, testutil.DecodeResponse(t, list).Data, &users)
	require.Len(t, users, 1)
	require.Equal(t, user.ID, users[0].ID)

	updated := env.Request(http.MethodPut, "/api/users/user/"+user.ID, map[string]string{"role": models.RoleAdmin}, adminToken)
	require.Equal(t, http.StatusOK, updated.Code, updated.Body.String())

	self := env.Request(http.MethodPut, "/api/users/archive/"+admin.ID, nil, adminToken)
	require.Equal(t, http.StatusBadRequest, self.Code)

	archived := env.Request(http.MethodPut, "/api/users/archive/"+user.ID, nil, adminToken)
	require.Equal(t, http.StatusOK, archived.Code)

	archivedList := env.Request(http.MethodGet, "/api/users/archive", nil, adminToken)
	require.Equal(t, http.StatusOK, archivedList.Code)
	var archivedUsers []map[string]any
	testutil.DecodeInto(t, testutil.DecodeResponse(t, archivedList).Data, &archivedUsers)
	require.Len(t, archivedUsers, 1)

	require.Equal(t, http.StatusNotFound, env.Request(http.MethodGet, "/api/users/user/"+user.ID, nil, adminToken).Code)
}

func TestUserHandler_PicketerRestrictions(t *testing.T) {
	env := testutil.NewEnv(t)
	other, _ := env.CreateUser("other@example.com", models.RolePicketer)
	_, token := env.CreateUser("member@example.com", models.RolePicketer)

	require.Equal(t, http.StatusForbidden, env.Request(http.MethodGet, "/api/users", nil, token).Code)
	require.Equal(t, http.StatusForbidden, env.Request(http.MethodDelete, "/api/users/user/"+other.ID, nil, token).Code)

	get := env.Request(http.MethodGet, "/api/users/user/"+other.ID, nil, token)
	require.Equal(t, http.StatusOK, get.Code)

	profile := env.Request(http.MethodPut, "/api/users/profile", map[string]string{
		"surname":  "Kuznetsov",
		"password": "another1",
	}, token)
	require.Equal(t, http.StatusOK, profile.Code, profile.Body.String())
	var me models.User
	testutil.DecodeInto(t, testutil.DecodeResponse(t, profile).Data, &me)
	require.Equal(t, "Kuznetsov", me.Surname)
	require.Equal(t, models.RolePicketer, me.Role)

	login := env.Request(http.MethodPost, "/api/auth", map[string]string{"email": "member@example.com", "password": "another1"}, "")
	require.Equal(t, http.StatusOK, login.Code)
}

func TestUserHandler_DemotionTakesEffectImmediately(t *testing.T) {
	env := testutil.NewEnv(t)
	_, rootToken := env.CreateUser("root@example.com", models.RoleAdmin)
	second, secondToken := env.CreateUser("second@example.com", models.RoleAdmin)

	require.Equal(t, http.StatusOK, env.Request(http.MethodGet, "/api/users", nil, secondToken).Code)

	demote := env.Request(http.MethodPut, "/api/users/user/"+second.ID, map[string]string{"role": models.RolePicketer}, rootToken)
	require.Equal(t, http.StatusOK, demote.Code)

	require.Equal(t, http.StatusForbidden, env.Request(http.MethodGet, "/api/users", nil, secondToken).Code)
}

func TestUserHandler_Delete(t *testing.T) {
	env := testutil.NewEnv(t)
	admin, adminToken := env.CreateUser("admin@example.com", models.RoleAdmin)
	target, targetToken := env.CreateUser("target@example.com", models.RolePicketer)

	require.Equal(t, http.StatusBadRequest, env.Request(http.MethodDelete, "/api/users/user/"+admin.ID, nil, adminToken).Code)
	require.Equal(t, http.StatusOK, env.Request(http.MethodDelete, "/api/users/user/"+target.ID, nil, adminToken).Code)
	require.Equal(t, http.StatusNotFound, env.Request(http.MethodDelete, "/api/users/user/"+target.ID, nil, adminToken).Code)
	require.Equal(t, http.StatusUnauthorized, env.Request(http.MethodGet, "/api/auth", nil, targetToken).Code)
}
