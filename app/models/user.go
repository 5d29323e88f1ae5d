package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// User is created or refreshed on first OAuth sign-in. Email is the join
// key used to resolve webhook payloads back to a local account.
type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ProviderSubject string    `gorm:"type:varchar(191);uniqueIndex" json:"-"`
	Email           string    `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Name            string    `gorm:"type:varchar(150)" json:"name" validate:"max=150"`
	AvatarURL       string    `gorm:"type:varchar(255);default:null" json:"avatar_url" validate:"max=255"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// NormalizeEmail lowercases and trims an email before it is used as a
// lookup or storage key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
