package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/picketer/internal/auditctx"
	"github.com/charlesng35/picketer/internal/models"
	apperrors "github.com/charlesng35/picketer/pkg/errors"
)

func newUserService(t *testing.T) (*UserService, *AuditService) {
	t.Helper()
	db := openServiceTestDB(t)
	audit, err := NewAuditService(db)
	require.NoError(t, err)
	svc, err := NewUserService(db, testHasher(), audit)
	require.NoError(t, err)
	return svc, audit
}

func strPtr(v string) *string { return &v }

func TestUserServiceCreateChecksRoleAndUniqueness(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	input := CreateUserInput{
		Name:       "Ivan",
		Surname:    "Petrov",
		Patronymic: "Sergeevich",
		Email:      "Ivan@Example.com",
		Password:   "secret1",
		Role:       models.RolePicketer,
	}

	user, err := svc.Create(ctx, models.RoleAdmin, input)
	require.NoError(t, err)
	require.Equal(t, "ivan@example.com", user.Email)
	require.NotEqual(t, "secret1", user.Password)

	_, err = svc.Create(ctx, models.RoleAdmin, input)
	require.ErrorIs(t, err, apperrors.ErrDuplicateAccount)

	input.Email = "other@example.com"
	input.Role = models.RoleAdmin
	_, err = svc.Create(ctx, models.RolePicketer, input)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	input.Role = "superuser"
	_, err = svc.Create(ctx, models.RoleAdmin, input)
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestUserServiceAuthenticate(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	createUser(t, svc.db, "login@example.com", models.RolePicketer)

	user, err := svc.Authenticate(ctx, " LOGIN@example.com ", "secret123")
	require.NoError(t, err)
	require.NotNil(t, user.LastLoginAt)

	_, err = svc.Authenticate(ctx, "login@example.com", "wrong")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "secret123")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "", "")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestUserServiceListSearchesNameTerms(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	for _, u := range []models.User{
		{Name: "Ivan", Surname: "Petrov", Patronymic: "Sergeevich", Email: "ivan@example.com", Role: models.RolePicketer},
		{Name: "Anna", Surname: "Petrova", Patronymic: "Ivanovna", Email: "anna@example.com", Role: models.RolePicketer},
		{Name: "Oleg", Surname: "Sidorov", Patronymic: "Olegovich", Email: "oleg@example.com", Role: models.RoleAdmin},
	} {
		u := u
		u.Password = "x"
		require.NoError(t, svc.db.Create(&u).Error)
	}

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	petrov, err := svc.List(ctx, "petrov")
	require.NoError(t, err)
	require.Len(t, petrov, 2)

	ivan, err := svc.List(ctx, "PETROV ivan")
	require.NoError(t, err)
	require.Len(t, ivan, 2, "Ivan Petrov and Anna Petrova Ivanovna both match")

	none, err := svc.List(ctx, "sidorov anna")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestUserServiceUpdateAndProfile(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	user := createUser(t, svc.db, "member@example.com", models.RolePicketer)
	createUser(t, svc.db, "taken@example.com", models.RolePicketer)

	updated, err := svc.Update(ctx, models.RoleAdmin, user.ID, UpdateUserInput{
		Surname: strPtr("Smirnov"),
		Role:    strPtr(models.RoleAdmin),
	})
	require.NoError(t, err)
	require.Equal(t, "Smirnov", updated.Surname)
	require.Equal(t, models.RoleAdmin, updated.Role)

	_, err = svc.Update(ctx, models.RoleAdmin, user.ID, UpdateUserInput{Email: strPtr("taken@example.com")})
	require.ErrorIs(t, err, apperrors.ErrDuplicateAccount)

	_, err = svc.Update(ctx, models.RoleAdmin, "missing", UpdateUserInput{Name: strPtr("X")})
	require.ErrorIs(t, err, ErrUserNotFound)

	profile, err := svc.UpdateProfile(ctx, user.ID, ProfileInput{
		Name:     strPtr("  Pyotr "),
		Password: strPtr("newsecret"),
	})
	require.NoError(t, err)
	require.Equal(t, "Pyotr", profile.Name)
	require.Equal(t, models.RoleAdmin, profile.Role)

	_, err = svc.Authenticate(ctx, "member@example.com", "newsecret")
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, user.ID, ProfileInput{Password: strPtr("123")})
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestUserServiceArchiveMovesAccount(t *testing.T) {
	svc, audit := newUserService(t)
	admin := createUser(t, svc.db, "admin@example.com", models.RoleAdmin)
	ctx := auditctx.WithActor(context.Background(), auditctx.Actor{UserID: admin.ID, Email: admin.Email, IPAddress: "127.0.0.1"})

	user := createUser(t, svc.db, "leaving@example.com", models.RolePicketer)
	require.NoError(t, svc.db.Create(&models.PushSubscription{
		UserID: user.ID, Endpoint: "https://push.example.com/1", P256dh: "k", Auth: "a",
	}).Error)

	_, err := svc.Archive(ctx, admin.ID, admin.ID)
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	archived, err := svc.Archive(ctx, admin.ID, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, archived.ID)

	_, err = svc.GetByID(ctx, user.ID)
	require.ErrorIs(t, err, ErrUserNotFound)

	var subs int64
	require.NoError(t, svc.db.Model(&models.PushSubscription{}).Count(&subs).Error)
	require.Zero(t, subs)

	list, err := svc.ListArchived(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// The archived email is free again.
	createUser(t, svc.db, "leaving@example.com", models.RolePicketer)

	logs, _, err := audit.List(ctx, AuditListOptions{Filters: AuditFilters{Action: "user.archive"}})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].UserID)
	require.Equal(t, admin.ID, *logs[0].UserID)
	require.Equal(t, "127.0.0.1", logs[0].IPAddress)
}

func TestUserServiceDelete(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	admin := createUser(t, svc.db, "admin@example.com", models.RoleAdmin)
	user := createUser(t, svc.db, "gone@example.com", models.RolePicketer)

	require.ErrorIs(t, svc.Delete(ctx, admin.ID, admin.ID), apperrors.ErrBadRequest)
	require.NoError(t, svc.Delete(ctx, admin.ID, user.ID))
	require.ErrorIs(t, svc.Delete(ctx, admin.ID, user.ID), ErrUserNotFound)

	role, err := svc.RoleOf(ctx, admin.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, role)
}

func TestUserServiceBootstrap(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	input := BootstrapInput{Name: "Root", Surname: "Admin", Patronymic: "R", Email: "root@example.com", Password: "secret1"}
	user, err := svc.Bootstrap(ctx, input)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, user.Role)

	input.Email = "second@example.com"
	_, err = svc.Bootstrap(ctx, input)
	require.ErrorIs(t, err, ErrAlreadyInitialized)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}
