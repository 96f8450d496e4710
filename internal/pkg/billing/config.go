package billing

import (
	"strings"

	"github.com/picshelf/PicShelf/app/models"
	"github.com/picshelf/PicShelf/internal/pkg/env"
)

// Config carries the billing environment for one payment mode. The mode is
// derived from the secret key prefix and threaded explicitly through every
// call, never read from ambient state.
type Config struct {
	Enabled       bool
	SecretKey     string
	WebhookSecret string
	PriceID       string
	AppBaseURL    string
	Mode          string
}

// NewConfigFromEnv assembles and validates the billing config. Configuration
// errors fail fast here, before any provider call.
func NewConfigFromEnv() (Config, error) {
	cfg := Config{
		Enabled:       env.GetEnv("FEATURE_BILLING", "true") == "true",
		SecretKey:     strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		WebhookSecret: strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
		PriceID:       strings.TrimSpace(env.GetEnv("STRIPE_PRICE_ID", "")),
		AppBaseURL:    strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000"), "/"),
	}

	if !cfg.Enabled {
		return cfg, nil
	}
	if err := cfg.Validate(env.IsProd()); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks key presence and key/environment consistency.
func (c *Config) Validate(isProduction bool) error {
	if c.SecretKey == "" || c.WebhookSecret == "" || c.PriceID == "" {
		return ErrNotConfigured
	}

	mode, err := ModeFromSecretKey(c.SecretKey)
	if err != nil {
		return err
	}
	if mode == models.ModeLive && !isProduction {
		return ErrLiveKeyOutsideProduction
	}
	c.Mode = mode
	return nil
}

// ModeFromSecretKey derives the payment environment from the key prefix.
func ModeFromSecretKey(key string) (string, error) {
	switch {
	case strings.HasPrefix(key, "sk_live_") || strings.HasPrefix(key, "rk_live_"):
		return models.ModeLive, nil
	case strings.HasPrefix(key, "sk_test_") || strings.HasPrefix(key, "rk_test_"):
		return models.ModeTest, nil
	default:
		return "", ErrNotConfigured
	}
}

func (c *Config) successURL() string {
	return c.AppBaseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"
}

func (c *Config) cancelURL() string {
	return c.AppBaseURL + "/pricing"
}

func (c *Config) portalReturnURL() string {
	return c.AppBaseURL + "/user/settings/billing"
}
