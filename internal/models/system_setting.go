package models

import "time"

// SystemSetting is a named value owned by the installation rather than a
// user, such as secrets generated on first start. The key column avoids the
// reserved word KEY so the same schema works on MySQL.
type SystemSetting struct {
	Key       string    `gorm:"column:setting_key;primaryKey;size:128" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
