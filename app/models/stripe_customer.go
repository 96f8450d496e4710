package models

import "time"

// Payment environment partition. State must never cross this boundary.
const (
	ModeTest = "test"
	ModeLive = "live"
)

// StripeCustomer links a user to their Stripe customer object. One row per
// user; the mode recorded here must match the mode of every subscription or
// webhook event touching this user.
type StripeCustomer struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	StripeCustomerID string    `gorm:"type:varchar(191);not null;index:ux_stripe_customers_customer_mode,unique,priority:1" json:"stripe_customer_id"`
	Mode             string    `gorm:"type:varchar(8);not null;index:ux_stripe_customers_customer_mode,unique,priority:2" json:"mode"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ValidMode reports whether a mode string is one of the two partitions.
func ValidMode(mode string) bool {
	return mode == ModeTest || mode == ModeLive
}
