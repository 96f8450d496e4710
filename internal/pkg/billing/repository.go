package billing

import (
	"time"

	"github.com/picshelf/PicShelf/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations used by the billing service. All
// cross-request coordination happens through the store's transaction and
// uniqueness guarantees; there are no in-process locks.
type Repository interface {
	// WithTx runs fn against a transactional repository. The webhook
	// processor relies on this to pair the ledger insert with the business
	// mutation atomically.
	WithTx(fn func(Repository) error) error

	GetUserByID(id uint) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	CreateUser(u *models.User) error
	SaveUser(u *models.User) error

	GetCustomerByUserID(userID uint) (*models.StripeCustomer, error)
	GetCustomerByStripeID(stripeCustomerID string) (*models.StripeCustomer, error)
	UpsertCustomer(c *models.StripeCustomer) error

	GetSubscriptionByUserID(userID uint, mode string) (*models.StripeSubscription, error)
	UpsertSubscription(s *models.StripeSubscription) error
	UpdateSubscriptionInvoice(stripeSubscriptionID, mode, invoiceID, invoiceStatus string) error

	// CreateWebhookEventIfNew inserts a ledger row and reports whether it was
	// created. false means the (event id, mode) pair was already seen.
	CreateWebhookEventIfNew(ev *models.WebhookEvent) (bool, error)

	CreatePendingCheckout(pc *models.PendingCheckout) error
	GetPendingCheckout(id string) (*models.PendingCheckout, error)
	SavePendingCheckout(pc *models.PendingCheckout) error
	// ConsumePendingCheckout atomically marks a still-unused, unexpired
	// record as used and reports whether this caller won. false means
	// another request consumed it first or the claim window closed.
	ConsumePendingCheckout(id string, now time.Time) (bool, error)
	DeleteStalePendingCheckouts(now time.Time) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) GetUserByID(id uint) (*models.User, error) {
	var u models.User
	if err := r.db.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *gormRepository) GetUserByEmail(email string) (*models.User, error) {
	var u models.User
	if err := r.db.Where("email = ?", models.NormalizeEmail(email)).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *gormRepository) CreateUser(u *models.User) error {
	return r.db.Create(u).Error
}

func (r *gormRepository) SaveUser(u *models.User) error {
	return r.db.Save(u).Error
}

func (r *gormRepository) GetCustomerByUserID(userID uint) (*models.StripeCustomer, error) {
	var c models.StripeCustomer
	if err := r.db.Where("user_id = ?", userID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *gormRepository) GetCustomerByStripeID(stripeCustomerID string) (*models.StripeCustomer, error) {
	var c models.StripeCustomer
	if err := r.db.Where("stripe_customer_id = ?", stripeCustomerID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *gormRepository) UpsertCustomer(c *models.StripeCustomer) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"stripe_customer_id",
			"mode",
			"updated_at",
		}),
	}).Create(c).Error; err != nil {
		return err
	}

	return r.db.Where("user_id = ?", c.UserID).First(c).Error
}

func (r *gormRepository) GetSubscriptionByUserID(userID uint, mode string) (*models.StripeSubscription, error) {
	var s models.StripeSubscription
	if err := r.db.Where("user_id = ? AND mode = ?", userID, mode).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *gormRepository) UpsertSubscription(s *models.StripeSubscription) error {
	// Keyed by user: the latest subscription wins, which is what makes
	// out-of-order delivery self-heal once the most recent event lands.
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"stripe_subscription_id",
			"stripe_customer_id",
			"product_id",
			"price_id",
			"status",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"canceled_at",
			"ended_at",
			"trial_end",
			"mode",
			"latest_invoice_id",
			"latest_invoice_status",
			"updated_at",
		}),
	}).Create(s).Error; err != nil {
		return err
	}

	return r.db.Where("user_id = ?", s.UserID).First(s).Error
}

func (r *gormRepository) UpdateSubscriptionInvoice(stripeSubscriptionID, mode, invoiceID, invoiceStatus string) error {
	return r.db.Model(&models.StripeSubscription{}).
		Where("stripe_subscription_id = ? AND mode = ?", stripeSubscriptionID, mode).
		Updates(map[string]interface{}{
			"latest_invoice_id":     invoiceID,
			"latest_invoice_status": invoiceStatus,
		}).Error
}

func (r *gormRepository) CreateWebhookEventIfNew(ev *models.WebhookEvent) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "stripe_event_id"},
			{Name: "mode"},
		},
		DoNothing: true,
	}).Create(ev)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) CreatePendingCheckout(pc *models.PendingCheckout) error {
	return r.db.Create(pc).Error
}

func (r *gormRepository) GetPendingCheckout(id string) (*models.PendingCheckout, error) {
	var pc models.PendingCheckout
	if err := r.db.Where("id = ?", id).First(&pc).Error; err != nil {
		return nil, err
	}
	return &pc, nil
}

func (r *gormRepository) SavePendingCheckout(pc *models.PendingCheckout) error {
	return r.db.Save(pc).Error
}

func (r *gormRepository) ConsumePendingCheckout(id string, now time.Time) (bool, error) {
	tx := r.db.Model(&models.PendingCheckout{}).
		Where("id = ? AND used_at IS NULL AND expires_at > ?", id, now).
		Update("used_at", now)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) DeleteStalePendingCheckouts(now time.Time) error {
	return r.db.Where("expires_at < ? OR used_at IS NOT NULL", now).
		Delete(&models.PendingCheckout{}).Error
}
