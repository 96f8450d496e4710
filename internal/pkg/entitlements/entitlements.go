package entitlements

import (
	"time"

	"github.com/picshelf/PicShelf/app/models"
)

type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// Entitlement is the derived access triple for a user. It is recomputed from
// the latest subscription row after every relevant write and on every read,
// so UI and backend never disagree.
type Entitlement struct {
	Plan          Plan       `json:"plan"`
	IsPro         bool       `json:"is_pro"`
	ProValidUntil *time.Time `json:"pro_valid_until,omitempty"`
}

// Compute derives the entitlement from a subscription snapshot. Pure and
// deterministic: no I/O, no clock access beyond the now argument.
//
// active and trialing entitle unconditionally. past_due and unpaid keep
// entitlement while the already-paid period is still running, so a billing
// hiccup surfaces as a payment warning instead of a hard downgrade. Every
// other status (or no subscription at all) means free.
func Compute(sub *models.StripeSubscription, now time.Time) Entitlement {
	if sub == nil {
		return Entitlement{Plan: PlanFree}
	}

	entitled := false
	switch sub.Status {
	case models.SubscriptionStatusActive, models.SubscriptionStatusTrialing:
		entitled = true
	case models.SubscriptionStatusPastDue, models.SubscriptionStatusUnpaid:
		entitled = sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.After(now)
	}

	if !entitled {
		return Entitlement{Plan: PlanFree}
	}

	return Entitlement{
		Plan:          PlanPro,
		IsPro:         true,
		ProValidUntil: sub.CurrentPeriodEnd,
	}
}

// InGracePeriod reports whether an entitled subscription is only entitled
// because the paid period has not elapsed yet. The product shows a payment
// warning banner for these.
func InGracePeriod(sub *models.StripeSubscription, now time.Time) bool {
	if sub == nil {
		return false
	}
	switch sub.Status {
	case models.SubscriptionStatusPastDue, models.SubscriptionStatusUnpaid:
		return Compute(sub, now).IsPro
	default:
		return false
	}
}
