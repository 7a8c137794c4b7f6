package models

import "time"

// Invitation states.
const (
	InvitationPending  = "pending"
	InvitationConsumed = "consumed"
)

// InvitationTTL is how long an unredeemed invitation remains valid.
const InvitationTTL = 30 * 24 * time.Hour

// Invitation is a single-use grant allowing one account to be registered with
// Role. Only a digest of the emailed token is stored.
type Invitation struct {
	BaseModel

	TokenHash  string     `gorm:"uniqueIndex;not null;size:64" json:"-"`
	Email      string     `gorm:"not null;index;size:320" json:"email"`
	Role       string     `gorm:"not null;size:32" json:"role"`
	InvitedBy  string     `gorm:"size:36;index" json:"invited_by"`
	Status     string     `gorm:"not null;size:16;index;default:pending" json:"status"`
	ExpiresAt  time.Time  `gorm:"index" json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
	ConsumedBy *string    `gorm:"size:36" json:"consumed_by,omitempty"`
}

// Redeemable reports whether the invitation can still produce an account at now.
func (i *Invitation) Redeemable(now time.Time) bool {
	return i.Status == InvitationPending && now.Before(i.ExpiresAt)
}
