package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charlesng35/picketer/internal/database"
	"github.com/charlesng35/picketer/pkg/crypto"
	"github.com/charlesng35/picketer/pkg/push"
)

const jwtSecretBytes = 48

// SecretStore returns the persisted value for key, calling generate and
// storing its result when none exists yet. The boolean reports a fresh value.
// database.EnsureSystemSetting bound to a *gorm.DB satisfies it.
type SecretStore func(ctx context.Context, key string, generate func() (string, error)) (string, bool, error)

// ApplyRuntimeDefaults ensures critical secrets are populated even when no configuration file is supplied.
// Generated secrets are persisted through store so restarts keep issued tokens and push subscriptions valid.
// It returns a map describing which keys were generated so callers can log the event without exposing values.
func ApplyRuntimeDefaults(ctx context.Context, cfg *Config, store SecretStore) (map[string]bool, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if store == nil {
		return nil, errors.New("secret store is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, created, err := store(ctx, database.JWTSecretSetting, func() (string, error) {
			return crypto.GenerateToken(jwtSecretBytes)
		})
		if err != nil {
			return nil, fmt.Errorf("jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated["auth.jwt.secret"] = created
	}

	if strings.TrimSpace(cfg.Push.VAPIDPrivateKey) == "" {
		private, created, err := store(ctx, database.VAPIDPrivateKeySetting, func() (string, error) {
			_, private, err := push.GenerateKeys()
			return private, err
		})
		if err != nil {
			return nil, fmt.Errorf("vapid private key: %w", err)
		}
		cfg.Push.VAPIDPrivateKey = private
		cfg.Push.VAPIDPublicKey = ""
		generated["push.vapid_private_key"] = created
	}

	if strings.TrimSpace(cfg.Push.VAPIDPublicKey) == "" {
		public, err := push.PublicKeyFor(cfg.Push.VAPIDPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("vapid public key: %w", err)
		}
		cfg.Push.VAPIDPublicKey = public
	}

	for key, created := range generated {
		if !created {
			delete(generated, key)
		}
	}
	return generated, nil
}
