package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post announces a picket: where it happens and what it is about.
type Post struct {
	BaseModel

	UserID   string    `gorm:"size:36;not null;index" json:"user_id"`
	Name     string    `json:"name"`
	Text     string    `gorm:"not null" json:"text"`
	Location string    `gorm:"not null;index" json:"location"`
	IsActive bool      `gorm:"default:true" json:"is_active"`
	Date     time.Time `gorm:"index" json:"date"`
}

// ArchivedPost is a post moved out of the active feed.
type ArchivedPost struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     string    `gorm:"size:36;index" json:"user_id"`
	Name       string    `json:"name"`
	Text       string    `json:"text"`
	Location   string    `json:"location"`
	IsActive   bool      `json:"is_active"`
	Date       time.Time `json:"date"`
	ArchivedAt time.Time `gorm:"index" json:"archived_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (a *ArchivedPost) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// ArchivePost copies p into an archive record.
func ArchivePost(p *Post, at time.Time) *ArchivedPost {
	return &ArchivedPost{
		ID:         p.ID,
		UserID:     p.UserID,
		Name:       p.Name,
		Text:       p.Text,
		Location:   p.Location,
		IsActive:   false,
		Date:       p.Date,
		ArchivedAt: at,
	}
}
