package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/picketer/internal/app"
	"github.com/charlesng35/picketer/internal/auth"
	testutil "github.com/charlesng35/picketer/internal/database/testutil"
	"github.com/charlesng35/picketer/internal/models"
)

func findCheck(t *testing.T, result Result, id string) Check {
	t.Helper()
	for _, check := range result.Checks {
		if check.ID == id {
			return check
		}
	}
	t.Fatalf("check %q not found", id)
	return Check{}
}

func TestPostureServiceRun(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	require.NoError(t, db.Create(&models.User{
		Name: "Root", Surname: "Admin", Patronymic: "R",
		Email: "root@example.com", Password: "hashed", Role: models.RoleAdmin,
	}).Error)

	secret := "0123456789abcdef0123456789abcdef0123456789abcdef"
	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{Secret: secret, Issuer: "test-suite", AccessTokenTTL: time.Hour})
	require.NoError(t, err)

	cfg := &app.Config{
		Server: app.ServerConfig{CORS: app.CORSConfig{AllowedOrigins: []string{"https://app.example.com"}}},
		Email:  app.EmailConfig{Driver: "smtp"},
		Push:   app.PushConfig{VAPIDPublicKey: "pub", VAPIDPrivateKey: "priv"},
	}

	svc := NewPostureService(db, jwtSvc, cfg)
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return fixed })

	result := svc.Run(context.Background())
	require.Equal(t, fixed, result.CheckedAt)
	require.Len(t, result.Checks, 6)
	require.Equal(t, 6, result.Summary[string(StatusPass)])
	require.False(t, result.Failed())
}

func TestPostureServiceFlagsWeakSetup(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{Secret: "short", AccessTokenTTL: 90 * 24 * time.Hour})
	require.NoError(t, err)

	cfg := &app.Config{Server: app.ServerConfig{CORS: app.CORSConfig{AllowedOrigins: []string{"*"}}}}
	result := NewPostureService(db, jwtSvc, cfg).Run(context.Background())

	require.True(t, result.Failed())
	require.Equal(t, StatusFail, findCheck(t, result, "admin_present").Status)
	require.Equal(t, StatusFail, findCheck(t, result, "jwt_secret_strength").Status)
	require.Equal(t, StatusWarn, findCheck(t, result, "token_ttl").Status)
	require.Equal(t, StatusWarn, findCheck(t, result, "cors_origins").Status)
	require.Equal(t, StatusWarn, findCheck(t, result, "push_configured").Status)
	require.Equal(t, StatusWarn, findCheck(t, result, "email_delivery").Status)
}

func TestPostureServiceWithoutDependencies(t *testing.T) {
	result := NewPostureService(nil, nil, nil).Run(context.Background())
	require.Len(t, result.Checks, 6)
	require.Equal(t, 6, result.Summary[string(StatusWarn)])
}
