package models

import "time"

// PendingCheckoutTTL bounds how long a guest checkout attempt stays claimable.
const PendingCheckoutTTL = 60 * time.Minute

// PendingCheckout is a single-use proof that a not-yet-authenticated party
// started a paid checkout. The email is stored encrypted with a separate
// deterministic lookup hash; the claim token is stored only as a hash. The
// success callback consumes the row exactly once, and any later guest
// checkout call garbage-collects expired or used rows.
type PendingCheckout struct {
	ID                string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	EncryptedEmail    string     `gorm:"type:text;not null" json:"-"`
	EmailLookupHash   string     `gorm:"type:varchar(64);not null;index" json:"-"`
	TokenHash         string     `gorm:"type:varchar(64);not null" json:"-"`
	Mode              string     `gorm:"type:varchar(8);not null" json:"mode"`
	CheckoutSessionID string     `gorm:"type:varchar(191);not null;default:'';index" json:"checkout_session_id"`
	ExpiresAt         time.Time  `gorm:"type:timestamp;not null;index" json:"expires_at"`
	UsedAt            *time.Time `gorm:"type:timestamp;default:null" json:"used_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// IsExpired reports whether the claim window has closed.
func (p *PendingCheckout) IsExpired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// IsUsed reports whether the record was already consumed. Consumption itself
// is a guarded update in the billing repository so concurrent claims cannot
// both win.
func (p *PendingCheckout) IsUsed() bool {
	return p.UsedAt != nil
}
