package billing

// CheckoutResult is the outcome of an authenticated checkout initiation.
// Exactly one field is meaningful: an already-entitled user without a
// customer record gets AlreadyPro, one with a customer record gets a portal
// URL instead of a second checkout, everyone else gets a checkout URL.
type CheckoutResult struct {
	AlreadyPro  bool   `json:"already_pro,omitempty"`
	PortalURL   string `json:"portal_url,omitempty"`
	CheckoutURL string `json:"checkout_url,omitempty"`
}

// GuestCheckoutResult is the outcome of a guest checkout initiation. The
// claim token is handed to the browser (cookie) and never stored in plain.
type GuestCheckoutResult struct {
	AlreadyPro  bool   `json:"already_pro,omitempty"`
	CheckoutURL string `json:"checkout_url,omitempty"`
	ClaimToken  string `json:"-"`
}

// CheckoutParams is the provider-agnostic input for creating a hosted
// checkout session.
type CheckoutParams struct {
	CustomerID        string
	CustomerEmail     string
	ClientReferenceID string
	PriceID           string
	SuccessURL        string
	CancelURL         string
	Metadata          map[string]string
}

// CheckoutSession is the provider-agnostic view of a hosted checkout session
// as created or re-fetched from the provider API.
type CheckoutSession struct {
	ID                string
	URL               string
	Mode              string
	PaymentStatus     string
	CustomerID        string
	SubscriptionID    string
	ClientReferenceID string
	Metadata          map[string]string
}

// Checkout session fields the success callback trusts only after re-fetching
// from the provider API.
const (
	SessionModeSubscription = "subscription"
	PaymentStatusPaid       = "paid"
)

// Metadata keys carried on checkout sessions for webhook correlation.
const (
	MetadataUserID            = "user_id"
	MetadataPendingCheckoutID = "pending_checkout_id"
	MetadataMode              = "mode"
)
