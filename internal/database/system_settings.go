package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/picketer/internal/models"
)

// Setting keys for secrets generated on first start.
const (
	JWTSecretSetting       = "auth.jwt_secret"
	VAPIDPublicKeySetting  = "push.vapid_public_key"
	VAPIDPrivateKeySetting = "push.vapid_private_key"
)

// GetSystemSetting retrieves a system setting by key. Returns an empty string when not found.
func GetSystemSetting(ctx context.Context, db *gorm.DB, key string) (string, error) {
	if db == nil {
		return "", fmt.Errorf("system settings: db is nil")
	}

	var setting models.SystemSetting
	err := db.WithContext(ctx).Take(&setting, "setting_key = ?", key).Error
	if err == nil {
		return setting.Value, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if strings.Contains(err.Error(), "no such table") {
		return "", nil
	}
	return "", fmt.Errorf("system settings: get %q: %w", key, err)
}

// UpsertSystemSetting stores or updates a system setting value.
func UpsertSystemSetting(ctx context.Context, db *gorm.DB, key, value string) error {
	if db == nil {
		return fmt.Errorf("system settings: db is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("system settings: key is required")
	}

	record := models.SystemSetting{
		Key:   key,
		Value: value,
	}

	if err := db.WithContext(ctx).
		Where("setting_key = ?", key).
		Assign(map[string]any{"value": value}).
		FirstOrCreate(&record).Error; err != nil {
		return fmt.Errorf("system settings: upsert %q: %w", key, err)
	}

	return nil
}

// EnsureSystemSetting returns the stored value for key, generating and
// persisting one when absent. The boolean reports whether a new value was
// created. Concurrent starters converge on the first stored value.
func EnsureSystemSetting(ctx context.Context, db *gorm.DB, key string, generate func() (string, error)) (string, bool, error) {
	current, err := GetSystemSetting(ctx, db, key)
	if err != nil {
		return "", false, err
	}
	if strings.TrimSpace(current) != "" {
		return current, false, nil
	}

	value, err := generate()
	if err != nil {
		return "", false, fmt.Errorf("system settings: generate %q: %w", key, err)
	}

	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.SystemSetting{Key: key, Value: value})
	if res.Error != nil {
		return "", false, fmt.Errorf("system settings: store %q: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		stored, err := GetSystemSetting(ctx, db, key)
		return stored, false, err
	}
	return value, true, nil
}
