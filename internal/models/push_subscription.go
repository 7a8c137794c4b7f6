package models

import "time"

// PushSubscription is a browser Web Push endpoint registered by a user.
type PushSubscription struct {
	BaseModel

	UserID         string     `gorm:"size:36;not null;index" json:"user_id"`
	Endpoint       string     `gorm:"uniqueIndex;not null;size:1024" json:"endpoint"`
	ExpirationTime *time.Time `json:"expiration_time,omitempty"`
	P256dh         string     `gorm:"not null" json:"-"`
	Auth           string     `gorm:"not null" json:"-"`
}
