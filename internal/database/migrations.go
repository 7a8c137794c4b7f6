package database

import (
	"gorm.io/gorm"

	"github.com/charlesng35/picketer/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.ArchivedUser{},
		&models.PushSubscription{},
		&models.Invitation{},
		&models.Post{},
		&models.ArchivedPost{},
		&models.Report{},
		&models.AuditLog{},
		&models.CacheEntry{},
		&models.SystemSetting{},
	)
}
