package billing

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/picshelf/PicShelf/app/models"
	"github.com/picshelf/PicShelf/internal/pkg/entitlements"
	"github.com/picshelf/PicShelf/internal/pkg/security"
	"gorm.io/gorm"
)

var emailValidator = validator.New()

// Service implements the subscription entitlement reconciliation engine:
// checkout initiation (authenticated + guest), webhook processing, the guest
// success callback, and the entitlement read path. Stateless per request;
// all coordination goes through the repository's transaction guarantees.
type Service struct {
	cfg      Config
	repo     Repository
	provider ProviderClient
	cipher   *security.EmailCipher

	now func() time.Time
}

// NewService creates a billing service from injected collaborators.
func NewService(cfg Config, repo Repository, provider ProviderClient, cipher *security.EmailCipher) *Service {
	return &Service{
		cfg:      cfg,
		repo:     repo,
		provider: provider,
		cipher:   cipher,
		now:      time.Now,
	}
}

// NewServiceFromDB wires a service from a GORM handle and a validated config.
func NewServiceFromDB(db *gorm.DB, cfg Config, cipher *security.EmailCipher) *Service {
	return NewService(cfg, NewRepository(db), NewStripeClient(cfg.SecretKey), cipher)
}

// Mode returns the payment environment this service operates in.
func (s *Service) Mode() string {
	return s.cfg.Mode
}

// InitiateAuthenticatedCheckout starts a checkout for a logged-in user, or
// short-circuits when the user is already entitled: with a customer record a
// billing portal session is returned instead (prevents duplicate
// subscriptions), without one the result just reports already-pro.
func (s *Service) InitiateAuthenticatedCheckout(ctx context.Context, userID uint) (*CheckoutResult, error) {
	if !s.cfg.Enabled {
		return nil, ErrBillingDisabled
	}
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}

	customer, err := s.repo.GetCustomerByUserID(userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if customer != nil && customer.Mode != s.cfg.Mode {
		return nil, ErrModeConflict
	}

	ent, err := s.GetEntitlement(userID)
	if err != nil {
		return nil, err
	}
	if ent.IsPro {
		if customer == nil {
			return &CheckoutResult{AlreadyPro: true}, nil
		}
		portalURL, err := s.provider.CreatePortalSession(ctx, customer.StripeCustomerID, s.cfg.portalReturnURL())
		if err != nil {
			return nil, err
		}
		return &CheckoutResult{PortalURL: portalURL}, nil
	}

	params := CheckoutParams{
		PriceID:    s.cfg.PriceID,
		SuccessURL: s.cfg.successURL(),
		CancelURL:  s.cfg.cancelURL(),
		Metadata: map[string]string{
			MetadataUserID: strconv.FormatUint(uint64(userID), 10),
			MetadataMode:   s.cfg.Mode,
		},
	}
	if customer != nil {
		params.CustomerID = customer.StripeCustomerID
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, err
	}
	return &CheckoutResult{CheckoutURL: sess.URL}, nil
}

// InitiateGuestCheckout starts a checkout for an email that has no account
// yet. Account creation is deferred until the success callback confirms
// payment; until then the intent lives in a single-use pending checkout.
func (s *Service) InitiateGuestCheckout(ctx context.Context, email string) (*GuestCheckoutResult, error) {
	if !s.cfg.Enabled {
		return nil, ErrBillingDisabled
	}

	email = models.NormalizeEmail(email)
	if err := emailValidator.Var(email, "required,email,max=200"); err != nil {
		return nil, ErrInvalidEmail
	}

	user, err := s.repo.GetUserByEmail(email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if user != nil {
		// A stale-looking free row can still be entitled through its
		// subscription; never sell a second subscription to a paying email.
		ent, err := s.GetEntitlement(user.ID)
		if err != nil {
			return nil, err
		}
		if ent.IsPro || user.IsPro {
			return &GuestCheckoutResult{AlreadyPro: true}, nil
		}
	}

	// Best-effort PII minimization; a failed purge never blocks checkout.
	if err := s.repo.DeleteStalePendingCheckouts(s.now()); err != nil {
		log.Printf("billing: pending checkout purge failed: %v", err)
	}

	token, tokenHash, err := security.GenerateCheckoutToken()
	if err != nil {
		return nil, err
	}
	encryptedEmail, err := s.cipher.Encrypt(email)
	if err != nil {
		return nil, err
	}

	pc := &models.PendingCheckout{
		ID:              uuid.NewString(),
		EncryptedEmail:  encryptedEmail,
		EmailLookupHash: s.cipher.LookupHash(email),
		TokenHash:       tokenHash,
		Mode:            s.cfg.Mode,
		ExpiresAt:       s.now().Add(models.PendingCheckoutTTL),
	}
	if err := s.repo.CreatePendingCheckout(pc); err != nil {
		return nil, err
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerEmail:     email,
		ClientReferenceID: pc.ID,
		PriceID:           s.cfg.PriceID,
		SuccessURL:        s.cfg.successURL(),
		CancelURL:         s.cfg.cancelURL(),
		Metadata: map[string]string{
			MetadataPendingCheckoutID: pc.ID,
			MetadataMode:              s.cfg.Mode,
		},
	})
	if err != nil {
		return nil, err
	}

	// Session id recorded back for traceability.
	pc.CheckoutSessionID = sess.ID
	if err := s.repo.SavePendingCheckout(pc); err != nil {
		return nil, err
	}

	return &GuestCheckoutResult{CheckoutURL: sess.URL, ClaimToken: token}, nil
}

// CompleteGuestCheckout handles the browser return from hosted checkout. It
// never trusts client-supplied success state: the session is re-fetched from
// the provider and must be a paid subscription-mode session, and the pending
// checkout must match the claim token, the active mode, and be unexpired and
// unused. This is the only place besides existing-user login where a User row
// is minted, and the only place a guest's Stripe customer gets linked
// locally, which is what lets later subscription webhooks reconcile the
// account. Failures carry only coarse enumerated codes.
func (s *Service) CompleteGuestCheckout(ctx context.Context, sessionID, claimToken string) (*models.User, error) {
	if !s.cfg.Enabled {
		return nil, ErrBillingDisabled
	}
	if sessionID == "" {
		return nil, callbackErr(CallbackCodeMissingSession)
	}

	sess, err := s.provider.RetrieveCheckoutSession(ctx, sessionID)
	if err != nil {
		log.Printf("billing: checkout session retrieve failed: %v", err)
		return nil, callbackErr(CallbackCodeMissingSession)
	}
	if sess.Mode != SessionModeSubscription {
		return nil, callbackErr(CallbackCodeInvalidMode)
	}
	if sess.PaymentStatus != PaymentStatusPaid {
		return nil, callbackErr(CallbackCodeNotPaid)
	}

	pendingID := sess.Metadata[MetadataPendingCheckoutID]
	if pendingID == "" {
		pendingID = sess.ClientReferenceID
	}
	if pendingID == "" {
		return nil, callbackErr(CallbackCodeMissingCheckout)
	}

	pc, err := s.repo.GetPendingCheckout(pendingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, callbackErr(CallbackCodeMissingCheckout)
		}
		return nil, err
	}
	if pc.Mode != s.cfg.Mode {
		return nil, callbackErr(CallbackCodeInvalidMode)
	}
	if !security.VerifyCheckoutToken(claimToken, pc.TokenHash) {
		return nil, callbackErr(CallbackCodeMissingCheckout)
	}
	if pc.IsUsed() || pc.IsExpired(s.now()) {
		return nil, callbackErr(CallbackCodeExpiredCheckout)
	}

	email, err := s.cipher.Decrypt(pc.EncryptedEmail)
	if err != nil {
		return nil, err
	}

	var user *models.User
	err = s.repo.WithTx(func(tx Repository) error {
		// The guarded consume is the single-use enforcement: two concurrent
		// callbacks both pass the pre-checks above, but only one wins here.
		consumed, err := tx.ConsumePendingCheckout(pc.ID, s.now())
		if err != nil {
			return err
		}
		if !consumed {
			return callbackErr(CallbackCodeExpiredCheckout)
		}

		existing, err := tx.GetUserByEmail(email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if existing == nil {
			user, err = models.NewProUser(email)
			if err != nil {
				return err
			}
			user.TouchLogin(s.now())
			if err := tx.CreateUser(user); err != nil {
				return err
			}
		} else {
			existing.Plan = models.PlanPro
			existing.IsPro = true
			existing.TouchLogin(s.now())
			if err := tx.SaveUser(existing); err != nil {
				return err
			}
			user = existing
		}

		return s.linkCustomer(tx, user.ID, sess.CustomerID)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// linkCustomer records the user↔Stripe-customer association so subscription
// webhooks can resolve the account. A customer already stored under another
// payment mode is left alone, never overwritten.
func (s *Service) linkCustomer(tx Repository, userID uint, stripeCustomerID string) error {
	if stripeCustomerID == "" {
		return nil
	}

	linked, err := tx.GetCustomerByUserID(userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if linked != nil && linked.Mode != s.cfg.Mode {
		log.Printf("billing: not linking customer %s for user %d: mode %s vs stored %s", stripeCustomerID, userID, s.cfg.Mode, linked.Mode)
		return nil
	}

	return tx.UpsertCustomer(&models.StripeCustomer{
		UserID:           userID,
		StripeCustomerID: stripeCustomerID,
		Mode:             s.cfg.Mode,
	})
}

// GetEntitlement is the read path: the same pure calculator the webhook
// processor uses, applied to the latest subscription row for the active mode.
func (s *Service) GetEntitlement(userID uint) (entitlements.Entitlement, error) {
	sub, err := s.repo.GetSubscriptionByUserID(userID, s.cfg.Mode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entitlements.Compute(nil, s.now()), nil
		}
		return entitlements.Entitlement{}, err
	}
	return entitlements.Compute(sub, s.now()), nil
}
