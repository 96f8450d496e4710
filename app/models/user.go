package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// User is an account that completed a paid checkout (guest flow) or came in
// through the existing-login flow. Webhooks never create users.
type User struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Email         string         `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	Plan          string         `gorm:"type:varchar(20);not null;default:'free'" json:"plan" validate:"oneof=free pro"`
	IsPro         bool           `gorm:"not null;default:false" json:"is_pro"`
	ProValidUntil *time.Time     `gorm:"type:timestamp;default:null" json:"pro_valid_until,omitempty"`
	LastLoginAt   *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// NewProUser builds a pro user for a payment-confirmed email. The caller
// persists it inside the same transaction that consumes the pending checkout.
func NewProUser(email string) (*User, error) {
	u := &User{
		Email: NormalizeEmail(email),
		Plan:  PlanPro,
		IsPro: true,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

// NormalizeEmail lowercases and trims an address so lookups and the unique
// index agree on one canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TouchLogin updates the last-login marker. The caller supplies the clock so
// the write stays deterministic under an injected time source.
func (u *User) TouchLogin(now time.Time) {
	u.LastLoginAt = &now
}
