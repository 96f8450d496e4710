package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/picshelf/PicShelf/app/models"
	"github.com/picshelf/PicShelf/internal/pkg/security"
	"gorm.io/gorm"
)

const (
	testEncKeyHex  = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	testHashKeyHex = "1f1e1d1c1b1a191817161514131211100f0e0d0c0b0a09080706050403020100"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		Enabled:       true,
		SecretKey:     "sk_test_abc",
		WebhookSecret: "whsec_testsecret",
		PriceID:       "price_pro_monthly",
		AppBaseURL:    "https://picshelf.test",
		Mode:          models.ModeTest,
	}
}

func newTestService(repo *fakeRepo, provider *fakeProvider) *Service {
	cipher, err := security.NewEmailCipher(testEncKeyHex, testHashKeyHex)
	if err != nil {
		panic(err)
	}
	svc := NewService(testConfig(), repo, provider, cipher)
	svc.now = func() time.Time { return testNow }
	return svc
}

// fakeRepo is an in-memory Repository with real transaction semantics:
// WithTx runs fn against a deep copy and commits it only on success, so
// rollback behavior is observable in tests.
type fakeRepo struct {
	users     map[uint]models.User
	nextID    uint
	customers map[uint]models.StripeCustomer
	subs      map[uint]models.StripeSubscription
	events    map[string]models.WebhookEvent
	pendings  map[string]models.PendingCheckout

	saveUserCalls int
	purgeCalls    int
	failSaveUser  error
	failPurge     error

	// Runs after a pending checkout read returns, letting tests interleave
	// a competing request between the pre-checks and the transaction.
	afterGetPendingCheckout func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:     map[uint]models.User{},
		nextID:    1,
		customers: map[uint]models.StripeCustomer{},
		subs:      map[uint]models.StripeSubscription{},
		events:    map[string]models.WebhookEvent{},
		pendings:  map[string]models.PendingCheckout{},
	}
}

func (f *fakeRepo) clone() *fakeRepo {
	c := &fakeRepo{
		users:         make(map[uint]models.User, len(f.users)),
		nextID:        f.nextID,
		customers:     make(map[uint]models.StripeCustomer, len(f.customers)),
		subs:          make(map[uint]models.StripeSubscription, len(f.subs)),
		events:        make(map[string]models.WebhookEvent, len(f.events)),
		pendings:      make(map[string]models.PendingCheckout, len(f.pendings)),
		saveUserCalls: f.saveUserCalls,
		purgeCalls:    f.purgeCalls,
		failSaveUser:  f.failSaveUser,
		failPurge:     f.failPurge,
	}
	c.afterGetPendingCheckout = f.afterGetPendingCheckout
	for k, v := range f.users {
		c.users[k] = v
	}
	for k, v := range f.customers {
		c.customers[k] = v
	}
	for k, v := range f.subs {
		c.subs[k] = v
	}
	for k, v := range f.events {
		c.events[k] = v
	}
	for k, v := range f.pendings {
		c.pendings[k] = v
	}
	return c
}

func (f *fakeRepo) WithTx(fn func(Repository) error) error {
	tx := f.clone()
	if err := fn(tx); err != nil {
		return err
	}
	*f = *tx
	return nil
}

func (f *fakeRepo) GetUserByID(id uint) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (f *fakeRepo) GetUserByEmail(email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	for _, u := range f.users {
		if u.Email == email {
			copied := u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) CreateUser(u *models.User) error {
	u.ID = f.nextID
	f.nextID++
	f.users[u.ID] = *u
	return nil
}

func (f *fakeRepo) SaveUser(u *models.User) error {
	f.saveUserCalls++
	if f.failSaveUser != nil {
		return f.failSaveUser
	}
	f.users[u.ID] = *u
	return nil
}

func (f *fakeRepo) GetCustomerByUserID(userID uint) (*models.StripeCustomer, error) {
	c, ok := f.customers[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (f *fakeRepo) GetCustomerByStripeID(stripeCustomerID string) (*models.StripeCustomer, error) {
	for _, c := range f.customers {
		if c.StripeCustomerID == stripeCustomerID {
			copied := c
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) UpsertCustomer(c *models.StripeCustomer) error {
	if existing, ok := f.customers[c.UserID]; ok {
		c.ID = existing.ID
	}
	f.customers[c.UserID] = *c
	return nil
}

func (f *fakeRepo) GetSubscriptionByUserID(userID uint, mode string) (*models.StripeSubscription, error) {
	s, ok := f.subs[userID]
	if !ok || s.Mode != mode {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (f *fakeRepo) UpsertSubscription(s *models.StripeSubscription) error {
	if existing, ok := f.subs[s.UserID]; ok {
		s.ID = existing.ID
	}
	f.subs[s.UserID] = *s
	return nil
}

func (f *fakeRepo) UpdateSubscriptionInvoice(stripeSubscriptionID, mode, invoiceID, invoiceStatus string) error {
	for userID, s := range f.subs {
		if s.StripeSubscriptionID == stripeSubscriptionID && s.Mode == mode {
			s.LatestInvoiceID = invoiceID
			s.LatestInvoiceStatus = invoiceStatus
			f.subs[userID] = s
		}
	}
	return nil
}

func (f *fakeRepo) CreateWebhookEventIfNew(ev *models.WebhookEvent) (bool, error) {
	key := ev.StripeEventID + "|" + ev.Mode
	if _, ok := f.events[key]; ok {
		return false, nil
	}
	f.events[key] = *ev
	return true, nil
}

func (f *fakeRepo) CreatePendingCheckout(pc *models.PendingCheckout) error {
	f.pendings[pc.ID] = *pc
	return nil
}

func (f *fakeRepo) GetPendingCheckout(id string) (*models.PendingCheckout, error) {
	pc, ok := f.pendings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if f.afterGetPendingCheckout != nil {
		f.afterGetPendingCheckout()
	}
	return &pc, nil
}

func (f *fakeRepo) SavePendingCheckout(pc *models.PendingCheckout) error {
	f.pendings[pc.ID] = *pc
	return nil
}

func (f *fakeRepo) ConsumePendingCheckout(id string, now time.Time) (bool, error) {
	pc, ok := f.pendings[id]
	if !ok || pc.UsedAt != nil || !now.Before(pc.ExpiresAt) {
		return false, nil
	}
	pc.UsedAt = &now
	f.pendings[id] = pc
	return true, nil
}

func (f *fakeRepo) DeleteStalePendingCheckouts(now time.Time) error {
	f.purgeCalls++
	if f.failPurge != nil {
		return f.failPurge
	}
	for id, pc := range f.pendings {
		if pc.ExpiresAt.Before(now) || pc.UsedAt != nil {
			delete(f.pendings, id)
		}
	}
	return nil
}

type fakeProvider struct {
	sessions    map[string]*CheckoutSession
	created     []CheckoutParams
	portalURL   string
	portalCalls int
	createErr   error
	retrieveErr error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		sessions:  map[string]*CheckoutSession{},
		portalURL: "https://billing.stripe.test/portal",
	}
}

func (p *fakeProvider) CreateCheckoutSession(_ context.Context, params CheckoutParams) (*CheckoutSession, error) {
	if p.createErr != nil {
		return nil, p.createErr
	}
	p.created = append(p.created, params)
	sess := &CheckoutSession{
		ID:                fmt.Sprintf("cs_test_%d", len(p.created)),
		URL:               fmt.Sprintf("https://checkout.stripe.test/cs_test_%d", len(p.created)),
		Mode:              SessionModeSubscription,
		PaymentStatus:     "unpaid",
		ClientReferenceID: params.ClientReferenceID,
		Metadata:          params.Metadata,
	}
	p.sessions[sess.ID] = sess
	return sess, nil
}

func (p *fakeProvider) RetrieveCheckoutSession(_ context.Context, id string) (*CheckoutSession, error) {
	if p.retrieveErr != nil {
		return nil, p.retrieveErr
	}
	sess, ok := p.sessions[id]
	if !ok {
		return nil, fmt.Errorf("no such session: %s", id)
	}
	copied := *sess
	return &copied, nil
}

func (p *fakeProvider) CreatePortalSession(_ context.Context, customerID, returnURL string) (string, error) {
	p.portalCalls++
	return p.portalURL, nil
}
