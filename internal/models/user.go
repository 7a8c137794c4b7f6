package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account able to sign in. The password column holds a bcrypt hash.
type User struct {
	BaseModel

	Name       string `gorm:"not null" json:"name"`
	Surname    string `gorm:"not null;index" json:"surname"`
	Patronymic string `gorm:"not null" json:"patronymic"`
	Email      string `gorm:"uniqueIndex;not null;size:320" json:"email"`
	Password   string `gorm:"not null" json:"-"`
	Role       string `gorm:"not null;size:32;index" json:"role"`

	Subscriptions []PushSubscription `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"subscriptions,omitempty"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// BeforeSave keeps the stored email canonical.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	return nil
}

// DisplayName renders the author label used on posts: "Surname Name".
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.Surname + " " + u.Name)
}

// FullName includes the patronymic.
func (u *User) FullName() string {
	return strings.TrimSpace(strings.Join([]string{u.Surname, u.Name, u.Patronymic}, " "))
}

// IsAdmin reports whether the account holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ArchivedUser keeps a removed account for the record. Archived emails do not
// participate in the uniqueness constraint of active accounts.
type ArchivedUser struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Name       string    `json:"name"`
	Surname    string    `json:"surname"`
	Patronymic string    `json:"patronymic"`
	Email      string    `gorm:"index" json:"email"`
	Password   string    `json:"-"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
	ArchivedAt time.Time `gorm:"index" json:"archived_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (a *ArchivedUser) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// ArchiveOf copies the account fields of u into an archive record.
func ArchiveOf(u *User, at time.Time) *ArchivedUser {
	return &ArchivedUser{
		ID:         u.ID,
		Name:       u.Name,
		Surname:    u.Surname,
		Patronymic: u.Patronymic,
		Email:      u.Email,
		Password:   u.Password,
		Role:       u.Role,
		CreatedAt:  u.CreatedAt,
		ArchivedAt: at,
	}
}
