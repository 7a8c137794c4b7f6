package models

import (
	"time"

	"gorm.io/datatypes"
)

// MaxReportImages caps the number of photos attached to one report.
const MaxReportImages = 12

// Report is a post-event submission with photos of the picket.
type Report struct {
	BaseModel

	UserID    *string                     `gorm:"size:36;index" json:"user_id,omitempty"`
	CreatorID string                      `gorm:"size:36;not null;index" json:"creator_id"`
	PostID    *string                     `gorm:"size:36;index" json:"post_id,omitempty"`
	Title     string                      `json:"title"`
	Picketer  string                      `json:"picketer"`
	Images    datatypes.JSONSlice[string] `json:"images"`
	Status    string                      `gorm:"size:32" json:"status"`
	Date      time.Time                   `gorm:"index" json:"date"`

	Post *Post `gorm:"foreignKey:PostID;constraint:OnDelete:SET NULL" json:"post,omitempty"`
}
