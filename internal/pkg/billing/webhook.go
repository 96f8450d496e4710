package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/picshelf/PicShelf/app/models"
	"github.com/picshelf/PicShelf/internal/pkg/entitlements"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"gorm.io/gorm"
)

// Stripe event types this processor acts on. Everything else still gets a
// ledger row so a later redelivery of the same event stays a no-op.
const (
	eventCheckoutCompleted   = "checkout.session.completed"
	eventSubscriptionUpdated = "customer.subscription.updated"
	eventSubscriptionDeleted = "customer.subscription.deleted"
	eventInvoicePaid         = "invoice.payment_succeeded"
	eventInvoiceFailed       = "invoice.payment_failed"
)

// ProcessWebhook verifies the payload signature and processes the event
// inside one transaction that pairs the dedup-ledger insert with the business
// mutation. An invalid signature fails closed before any DB work; a duplicate
// (event id, mode) commits nothing beyond the already-present ledger row; any
// processing failure rolls the ledger insert back so the provider's
// redelivery can retry a genuinely failed attempt.
func (s *Service) ProcessWebhook(payload []byte, sigHeader string) error {
	if !s.cfg.Enabled {
		return ErrBillingDisabled
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return ErrInvalidSignature
	}

	return s.processEvent(&event)
}

func (s *Service) processEvent(event *stripe.Event) error {
	mode := models.ModeTest
	if event.Livemode {
		mode = models.ModeLive
	}

	return s.repo.WithTx(func(tx Repository) error {
		created, err := tx.CreateWebhookEventIfNew(&models.WebhookEvent{
			StripeEventID: event.ID,
			Mode:          mode,
			EventType:     string(event.Type),
		})
		if err != nil {
			return err
		}
		if !created {
			// Replay: success no-op, nothing else committed.
			return nil
		}

		switch string(event.Type) {
		case eventCheckoutCompleted:
			return s.handleCheckoutCompleted(tx, event, mode)
		case eventSubscriptionUpdated, eventSubscriptionDeleted:
			return s.handleSubscriptionEvent(tx, event, mode)
		case eventInvoicePaid, eventInvoiceFailed:
			return s.handleInvoiceEvent(tx, event, mode)
		default:
			// Ledger row only.
			return nil
		}
	})
}

// handleCheckoutCompleted links the paying user to their Stripe customer and
// optimistically flips them to pro; the next subscription event confirms the
// final state. Guest checkouts carry a pending-checkout id instead of a user
// id and are materialized by the success callback, so they no-op here.
func (s *Service) handleCheckoutCompleted(tx Repository, event *stripe.Event, mode string) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return err
	}

	if tagged := sess.Metadata[MetadataMode]; tagged != "" && tagged != mode {
		return nil
	}

	userID := parseUserID(sess.Metadata[MetadataUserID])
	if userID == 0 {
		return nil
	}
	if sess.Customer == nil || sess.Customer.ID == "" {
		return nil
	}

	existing, err := tx.GetCustomerByUserID(userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if existing != nil && existing.Mode != mode {
		// Cross-mode writes are skipped, never merged.
		log.Printf("billing: skipping checkout.session.completed for user %d: mode %s vs stored %s", userID, mode, existing.Mode)
		return nil
	}

	if err := tx.UpsertCustomer(&models.StripeCustomer{
		UserID:           userID,
		StripeCustomerID: sess.Customer.ID,
		Mode:             mode,
	}); err != nil {
		return err
	}

	user, err := tx.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Webhooks never mint users.
			return nil
		}
		return err
	}

	user.Plan = models.PlanPro
	user.IsPro = true
	return tx.SaveUser(user)
}

// handleSubscriptionEvent syncs the latest subscription snapshot onto the
// local row (last write wins, keyed by user) and recomputes the entitlement.
func (s *Service) handleSubscriptionEvent(tx Repository, event *stripe.Event, mode string) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return err
	}
	if sub.Customer == nil || sub.Customer.ID == "" {
		return nil
	}

	customer, err := tx.GetCustomerByStripeID(sub.Customer.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No linked local account yet, typically a guest whose success
			// callback is still in flight. Fail the delivery: the ledger
			// insert rolls back and the provider's redelivery lands once the
			// callback has linked the customer.
			return fmt.Errorf("no local customer for %s", sub.Customer.ID)
		}
		return err
	}
	if customer.Mode != mode {
		log.Printf("billing: skipping %s for customer %s: mode %s vs stored %s", event.Type, sub.Customer.ID, mode, customer.Mode)
		return nil
	}

	record := &models.StripeSubscription{
		UserID:               customer.UserID,
		StripeSubscriptionID: sub.ID,
		StripeCustomerID:     sub.Customer.ID,
		Status:               string(sub.Status),
		CurrentPeriodStart:   unixTime(sub.CurrentPeriodStart),
		CurrentPeriodEnd:     unixTime(sub.CurrentPeriodEnd),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		CanceledAt:           unixTime(sub.CanceledAt),
		EndedAt:              unixTime(sub.EndedAt),
		TrialEnd:             unixTime(sub.TrialEnd),
		Mode:                 mode,
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		if price := sub.Items.Data[0].Price; price != nil {
			record.PriceID = price.ID
			if price.Product != nil {
				record.ProductID = price.Product.ID
			}
		}
	}
	if sub.LatestInvoice != nil {
		record.LatestInvoiceID = sub.LatestInvoice.ID
		record.LatestInvoiceStatus = string(sub.LatestInvoice.Status)
	}

	if err := tx.UpsertSubscription(record); err != nil {
		return err
	}

	user, err := tx.GetUserByID(customer.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	ent := entitlements.Compute(record, s.now())
	user.Plan = string(ent.Plan)
	user.IsPro = ent.IsPro
	user.ProValidUntil = ent.ProValidUntil
	return tx.SaveUser(user)
}

// handleInvoiceEvent records the latest invoice outcome on the matching
// subscription row. Entitlement changes are driven by the subscription-status
// events, not here.
func (s *Service) handleInvoiceEvent(tx Repository, event *stripe.Event, mode string) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return err
	}
	if inv.Subscription == nil || inv.Subscription.ID == "" {
		return nil
	}

	return tx.UpdateSubscriptionInvoice(inv.Subscription.ID, mode, inv.ID, string(inv.Status))
}

func parseUserID(raw string) uint {
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

func unixTime(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
