package controllers

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/picshelf/PicShelf/internal/pkg/billing"
	"github.com/picshelf/PicShelf/internal/pkg/database"
	"github.com/picshelf/PicShelf/internal/pkg/env"
	"github.com/picshelf/PicShelf/internal/pkg/security"
	"github.com/picshelf/PicShelf/internal/pkg/session"
	"github.com/picshelf/PicShelf/internal/pkg/usercontext"
)

const claimTokenCookie = "guest_checkout_token"

func newBillingService() (*billing.Service, error) {
	cfg, err := billing.NewConfigFromEnv()
	if err != nil {
		return nil, err
	}
	cipher, err := security.NewEmailCipher(
		env.GetEnv("EMAIL_ENC_KEY", ""),
		env.GetEnv("EMAIL_HASH_KEY", ""),
	)
	if err != nil {
		return nil, err
	}
	return billing.NewServiceFromDB(database.GetDB(), cfg, cipher), nil
}

// HandleCheckout starts a subscription checkout for the logged-in user.
// Already-entitled users are routed to the billing portal (or told so)
// instead of a second checkout.
func HandleCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	svc, err := newBillingService()
	if err != nil {
		log.Printf("billing config error: %v", err)
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Billing is not available right now"}).Redirect("/user/settings/billing")
	}

	result, err := svc.InitiateAuthenticatedCheckout(c.Context(), userCtx.UserID)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrBillingDisabled):
			return flash.WithError(c, fiber.Map{"type": "error", "message": "Billing is currently disabled"}).Redirect("/user/settings/billing")
		case errors.Is(err, billing.ErrModeConflict):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "billing_mode_conflict"})
		default:
			log.Printf("checkout initiation failed for user %d: %v", userCtx.UserID, err)
			return flash.WithError(c, fiber.Map{"type": "error", "message": "Checkout could not be started"}).Redirect("/user/settings/billing")
		}
	}

	switch {
	case result.CheckoutURL != "":
		return c.Redirect(result.CheckoutURL, fiber.StatusSeeOther)
	case result.PortalURL != "":
		return c.Redirect(result.PortalURL, fiber.StatusSeeOther)
	default:
		return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "You already have an active Pro subscription"}).Redirect("/user/settings/billing")
	}
}

// HandleGuestCheckout starts a checkout for a visitor without an account.
// The account itself is created only after payment is confirmed.
func HandleGuestCheckout(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.FormValue("email"))

	svc, err := newBillingService()
	if err != nil {
		log.Printf("billing config error: %v", err)
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Billing is not available right now"}).Redirect("/pricing")
	}

	result, err := svc.InitiateGuestCheckout(c.Context(), email)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrInvalidEmail):
			return flash.WithError(c, fiber.Map{"type": "error", "message": "Please enter a valid email address"}).Redirect("/pricing")
		case errors.Is(err, billing.ErrBillingDisabled):
			return flash.WithError(c, fiber.Map{"type": "error", "message": "Billing is currently disabled"}).Redirect("/pricing")
		default:
			log.Printf("guest checkout initiation failed: %v", err)
			return flash.WithError(c, fiber.Map{"type": "error", "message": "Checkout could not be started"}).Redirect("/pricing")
		}
	}

	if result.AlreadyPro {
		return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "This email already has an active Pro subscription. Please log in."}).Redirect("/login")
	}

	// The claim token comes back on the success callback; it is stored
	// server-side only as a hash.
	c.Cookie(&fiber.Cookie{
		Name:     claimTokenCookie,
		Value:    result.ClaimToken,
		Expires:  time.Now().Add(2 * time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.Redirect(result.CheckoutURL, fiber.StatusSeeOther)
}

// HandleCheckoutSuccess is the browser return from hosted checkout. Payment
// state is verified out-of-band with the provider; on success the user is
// minted (guest flow) and logged in. Failures land on a generic error page
// with the specific condition only logged server-side.
func HandleCheckoutSuccess(c *fiber.Ctx) error {
	sessionID := strings.TrimSpace(c.Query("session_id"))
	claimToken := c.Cookies(claimTokenCookie)

	svc, err := newBillingService()
	if err != nil {
		log.Printf("billing config error: %v", err)
		return redirectCheckoutError(c)
	}

	user, err := svc.CompleteGuestCheckout(c.Context(), sessionID, claimToken)
	if err != nil {
		if code := billing.CallbackCode(err); code != "" {
			log.Printf("guest checkout callback rejected: %s", code)
		} else {
			log.Printf("guest checkout callback failed: %v", err)
		}
		return redirectCheckoutError(c)
	}

	c.ClearCookie(claimTokenCookie)

	if _, err := session.CreateUserSession(c, user); err != nil {
		log.Printf("session creation failed for user %d: %v", user.ID, err)
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Your purchase succeeded but login failed. Please log in manually."}).Redirect("/login")
	}

	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Welcome to Pro! Your subscription is active."}).Redirect("/user")
}

// HandleCheckoutCancel is the browser return from an abandoned checkout.
func HandleCheckoutCancel(c *fiber.Ctx) error {
	return flash.WithError(c, fiber.Map{"type": "error", "message": "Checkout was canceled"}).Redirect("/pricing")
}

func redirectCheckoutError(c *fiber.Ctx) error {
	return flash.WithError(c, fiber.Map{"type": "error", "message": "We could not confirm your purchase. If you were charged, contact support."}).Redirect("/checkout/error")
}

// HandleCheckoutError renders the generic checkout failure destination.
func HandleCheckoutError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"error":   "checkout_failed",
		"message": "We could not confirm your purchase. If you were charged, contact support.",
	})
}

// HandleStripeWebhook receives provider events. Signature verification and
// the dedup-ledger transaction live in the billing service; any processing
// failure returns a non-2xx status so the provider redelivers with backoff.
func HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))

	svc, err := newBillingService()
	if err != nil {
		log.Printf("billing config error: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "webhook_not_configured"})
	}

	if err := svc.ProcessWebhook(rawBody, signature); err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
		}
		log.Printf("stripe webhook processing failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_processing_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
}

// HandleEntitlement is the read path for the UI: the same calculator the
// webhook processor uses, so the two can never disagree.
func HandleEntitlement(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	svc, err := newBillingService()
	if err != nil {
		log.Printf("billing config error: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "billing_unavailable"})
	}

	ent, err := svc.GetEntitlement(userCtx.UserID)
	if err != nil {
		log.Printf("entitlement lookup failed for user %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "entitlement_lookup_failed"})
	}

	return c.JSON(ent)
}
