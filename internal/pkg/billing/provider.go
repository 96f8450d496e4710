package billing

import "context"

// ProviderClient is the slice of the payment provider API this core consumes:
// hosted checkout session create/retrieve and billing portal session create.
// Webhook payload verification lives in the webhook processor, not here.
type ProviderClient interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	RetrieveCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}
