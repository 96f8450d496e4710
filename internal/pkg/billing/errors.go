package billing

import "errors"

var (
	// ErrBillingDisabled means the billing feature flag is off.
	ErrBillingDisabled = errors.New("billing is disabled")
	// ErrNotConfigured means a required key or price id is missing.
	ErrNotConfigured = errors.New("billing is not configured")
	// ErrLiveKeyOutsideProduction guards preview environments against a live
	// secret key. Fails fast before any external call.
	ErrLiveKeyOutsideProduction = errors.New("live stripe secret key configured outside production")
	// ErrInvalidEmail rejects malformed guest checkout addresses.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrModeConflict is returned when a stored customer record belongs to a
	// different payment environment than the active one. User-initiated
	// requests see this explicitly; webhooks skip silently instead.
	ErrModeConflict = errors.New("stripe customer mode conflict")
	// ErrInvalidSignature rejects webhook payloads that fail verification.
	// No transaction is attempted for these.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Coarse callback failure codes. Deliberately low-detail: the error page must
// not let a caller probe which sub-condition failed beyond these buckets.
const (
	CallbackCodeMissingSession  = "missing_session"
	CallbackCodeInvalidMode     = "invalid_mode"
	CallbackCodeNotPaid         = "not_paid"
	CallbackCodeMissingCheckout = "missing_checkout"
	CallbackCodeExpiredCheckout = "expired_checkout"
)

// CallbackError carries one of the enumerated callback failure codes.
type CallbackError struct {
	Code string
}

func (e *CallbackError) Error() string {
	return "guest checkout callback failed: " + e.Code
}

func callbackErr(code string) *CallbackError {
	return &CallbackError{Code: code}
}

// CallbackCode extracts the coarse failure code, or empty if err is not a
// callback failure.
func CallbackCode(err error) string {
	var ce *CallbackError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
