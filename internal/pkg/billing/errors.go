package billing

import "errors"

// Sentinel errors surfaced by the billing service. Controllers map these
// onto HTTP statuses; everything else is treated as an internal error.
var (
	ErrMissingSecret    = errors.New("webhook secret is not configured")
	ErrMissingSignature = errors.New("webhook signature headers are missing")
	ErrInvalidSignature = errors.New("webhook signature mismatch")

	ErrInvalidProduct     = errors.New("product id is not in the checkout whitelist")
	ErrStaleRequest       = errors.New("checkout request timestamp is stale")
	ErrInvalidRedirectURL = errors.New("redirect url must be absolute http(s)")

	ErrProviderUnavailable = errors.New("payment provider client is not configured")
	ErrProviderError       = errors.New("payment provider request failed")

	ErrPurchaseNotFound = errors.New("purchase not found")
)
