package models

import "time"

// CacheEntry is a row of the database-backed cache used for rate limiting
// when Redis is not configured. A zero ExpiresAt never expires.
type CacheEntry struct {
	Key       string `gorm:"column:cache_key;primaryKey;size:255"`
	Value     []byte
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the entry's window closed before now.
func (e CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}
