package billing

import (
	"context"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// stripeClient adapts the Stripe SDK to ProviderClient. Each instance holds
// its own API key, so test-mode and live-mode clients can coexist in one
// process instead of sharing the SDK's global key.
type stripeClient struct {
	api *client.API
}

// NewStripeClient builds a provider client for one secret key.
func NewStripeClient(secretKey string) ProviderClient {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &stripeClient{api: api}
}

func (c *stripeClient) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	p := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(params.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
	}
	p.Context = ctx

	if params.CustomerID != "" {
		p.Customer = stripe.String(params.CustomerID)
	}
	if params.CustomerEmail != "" {
		p.CustomerEmail = stripe.String(params.CustomerEmail)
	}
	if params.ClientReferenceID != "" {
		p.ClientReferenceID = stripe.String(params.ClientReferenceID)
	}
	for k, v := range params.Metadata {
		p.AddMetadata(k, v)
	}

	sess, err := c.api.CheckoutSessions.New(p)
	if err != nil {
		return nil, err
	}
	return fromStripeSession(sess), nil
}

func (c *stripeClient) RetrieveCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	p := &stripe.CheckoutSessionParams{}
	p.Context = ctx

	sess, err := c.api.CheckoutSessions.Get(id, p)
	if err != nil {
		return nil, err
	}
	return fromStripeSession(sess), nil
}

func (c *stripeClient) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	p := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	p.Context = ctx

	sess, err := c.api.BillingPortalSessions.New(p)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

func fromStripeSession(sess *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:                sess.ID,
		URL:               sess.URL,
		Mode:              string(sess.Mode),
		PaymentStatus:     string(sess.PaymentStatus),
		ClientReferenceID: sess.ClientReferenceID,
		Metadata:          sess.Metadata,
	}
	if sess.Customer != nil {
		out.CustomerID = sess.Customer.ID
	}
	if sess.Subscription != nil {
		out.SubscriptionID = sess.Subscription.ID
	}
	return out
}
