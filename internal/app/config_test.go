package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/picketer/internal/auth"
	"github.com/charlesng35/picketer/internal/storage"
	"github.com/charlesng35/picketer/pkg/mail"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, []string{"https://app.example.com"}, cfg.Server.CORS.AllowedOrigins)
	require.Equal(t, 5, cfg.Server.RateLimit.Requests)
	require.Equal(t, 30*time.Second, cfg.Server.RateLimit.Window)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)

	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, 2, cfg.Cache.Redis.DB)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, 48*time.Hour, cfg.Auth.JWT.TTL)
	require.Equal(t, 12, cfg.Auth.Password.BcryptCost)
	require.Equal(t, 168*time.Hour, cfg.Invitations.TTL)

	require.Equal(t, "smtp", cfg.Email.Driver)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)

	require.Equal(t, "s3", cfg.Storage.Driver)
	require.Equal(t, "picket-reports", cfg.Storage.S3.Bucket)
	require.True(t, cfg.Storage.S3.UsePathStyle)

	require.Equal(t, 8, cfg.Tasks.Workers)
	require.Equal(t, 256, cfg.Tasks.QueueSize)
	require.Equal(t, 30, cfg.Maintenance.AuditRetentionDays)
	require.Equal(t, "@every 1h", cfg.Maintenance.Schedule)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 5000, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 120*time.Hour, cfg.Auth.JWT.TTL)
	require.Equal(t, 10, cfg.Auth.Password.BcryptCost)
	require.Equal(t, 720*time.Hour, cfg.Invitations.TTL)
	require.Equal(t, "none", cfg.Email.Driver)
	require.Equal(t, "local", cfg.Storage.Driver)
	require.Equal(t, "/public", cfg.Storage.Local.URLPrefix)
	require.Empty(t, cfg.Auth.JWT.Secret)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("PICKETER_SERVER_PORT", "7070")
	t.Setenv("PICKETER_EMAIL_DRIVER", "sendgrid")
	t.Setenv("PICKETER_EMAIL_SENDGRID_API_KEY", "SG.key")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "sendgrid", cfg.Email.Driver)
	require.Equal(t, "SG.key", cfg.Email.SendGrid.APIKey)
}

func TestLoadConfigDecodesEnvironmentListsAndDurations(t *testing.T) {
	t.Setenv("PICKETER_SERVER_CORS_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")
	t.Setenv("PICKETER_SERVER_SHUTDOWN_TIMEOUT", "45s")
	t.Setenv("PICKETER_STORAGE_DRIVER", "s3")
	t.Setenv("PICKETER_STORAGE_S3_BUCKET", "picket-photos")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORS.AllowedOrigins)
	require.Equal(t, 45*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, "s3", cfg.Storage.Driver)
	// bucket has no default, so only struct binding exposes it to the environment
	require.Equal(t, "picket-photos", cfg.Storage.S3.Bucket)
}

func TestValidateRejectsUnknownDrivers(t *testing.T) {
	valid := Config{Server: ServerConfig{Port: 5000}}
	require.NoError(t, valid.Validate())

	cfg := valid
	cfg.Email.Driver = "pigeon"
	require.ErrorContains(t, cfg.Validate(), "email driver")

	cfg = valid
	cfg.Storage.Driver = "s3"
	require.ErrorContains(t, cfg.Validate(), "bucket")

	cfg = valid
	cfg.Storage.Driver = "ftp"
	require.ErrorContains(t, cfg.Validate(), "storage driver")

	cfg = valid
	cfg.Server.Port = 0
	require.ErrorContains(t, cfg.Validate(), "port")
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := AuthConfig{
		JWT:      JWTSettings{Secret: "secret", Issuer: "issuer", TTL: 30 * time.Minute},
		Password: PasswordSettings{BcryptCost: 11},
	}

	require.Equal(t, auth.JWTConfig{
		Secret:         "secret",
		Issuer:         "issuer",
		AccessTokenTTL: 30 * time.Minute,
	}, cfg.JWTServiceConfig())
	require.Equal(t, 11, cfg.PasswordHasher().Cost())

	var empty AuthConfig
	require.Equal(t, auth.DefaultAccessTokenTTL, empty.JWTServiceConfig().AccessTokenTTL)
	require.Equal(t, 10, empty.PasswordHasher().Cost())
}

func TestEmailConfigAdapters(t *testing.T) {
	cfg := EmailConfig{
		Driver:   "smtp",
		From:     "no-reply@example.com",
		FromName: "Picketer",
		SMTP: SMTPConfig{
			Host:     "smtp.example.com",
			Port:     2525,
			Username: "user",
			Password: "pass",
			UseTLS:   true,
			Timeout:  10 * time.Second,
		},
		SendGrid: SendGridConfig{APIKey: "SG.key"},
	}

	settings := cfg.SMTPSettings()
	require.True(t, settings.Enabled)
	require.Equal(t, "smtp.example.com", settings.Host)
	require.Equal(t, "no-reply@example.com", settings.From)
	require.Equal(t, 10*time.Second, settings.Timeout)

	require.Equal(t, mail.SendGridSettings{
		APIKey:   "SG.key",
		From:     "no-reply@example.com",
		FromName: "Picketer",
	}, cfg.SendGridSettings())

	mailer, err := cfg.NewMailer()
	require.NoError(t, err)
	require.NotNil(t, mailer)

	cfg.Driver = "none"
	mailer, err = cfg.NewMailer()
	require.NoError(t, err)
	require.True(t, errors.Is(mailer.Send(context.Background(), mail.Message{}), mail.ErrDisabled))

	cfg.Driver = "fax"
	_, err = cfg.NewMailer()
	require.Error(t, err)
}

func TestStorageConfigBuildsLocalBackend(t *testing.T) {
	cfg := StorageConfig{
		Driver: "local",
		Local:  LocalStorageConfig{Dir: t.TempDir(), URLPrefix: "/public"},
	}

	backend, err := cfg.NewStorage(context.Background())
	require.NoError(t, err)
	local, ok := backend.(*storage.LocalStorage)
	require.True(t, ok)
	require.Equal(t, "/public", local.URLPrefix())
}

func TestTaskAndPushAdapters(t *testing.T) {
	opts := TaskConfig{Workers: 3, QueueSize: 9, Timeout: time.Second}.PoolOptions()
	require.Equal(t, 3, opts.Workers)
	require.Equal(t, 9, opts.QueueSize)

	settings := PushConfig{VAPIDPublicKey: "pub", VAPIDPrivateKey: "priv", Subject: "mailto:a@b.c", TTL: time.Hour}.PushSettings()
	require.True(t, settings.Enabled())
	require.Equal(t, time.Hour, settings.TTL)
}
