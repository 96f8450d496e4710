package models

import "time"

// Stripe subscription statuses as delivered on webhook events.
const (
	SubscriptionStatusActive            = "active"
	SubscriptionStatusTrialing          = "trialing"
	SubscriptionStatusPastDue           = "past_due"
	SubscriptionStatusUnpaid            = "unpaid"
	SubscriptionStatusCanceled          = "canceled"
	SubscriptionStatusIncomplete        = "incomplete"
	SubscriptionStatusIncompleteExpired = "incomplete_expired"
	SubscriptionStatusPaused            = "paused"
)

// StripeSubscription mirrors the latest known provider subscription state for
// a user. One row per user (latest subscription wins); mutated only by the
// webhook processor.
type StripeSubscription struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	UserID               uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	StripeSubscriptionID string     `gorm:"type:varchar(191);not null;index" json:"stripe_subscription_id"`
	StripeCustomerID     string     `gorm:"type:varchar(191);not null;index" json:"stripe_customer_id"`
	ProductID            string     `gorm:"type:varchar(191);not null;default:''" json:"product_id"`
	PriceID              string     `gorm:"type:varchar(191);not null;default:''" json:"price_id"`
	Status               string     `gorm:"type:varchar(32);not null;default:'incomplete';index" json:"status"`
	CurrentPeriodStart   *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CanceledAt           *time.Time `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	EndedAt              *time.Time `gorm:"type:timestamp;default:null" json:"ended_at,omitempty"`
	TrialEnd             *time.Time `gorm:"type:timestamp;default:null" json:"trial_end,omitempty"`
	Mode                 string     `gorm:"type:varchar(8);not null;index" json:"mode"`
	LatestInvoiceID      string     `gorm:"type:varchar(191);not null;default:''" json:"latest_invoice_id"`
	LatestInvoiceStatus  string     `gorm:"type:varchar(32);not null;default:''" json:"latest_invoice_status"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
