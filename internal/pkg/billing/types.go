package billing

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// CheckoutInput carries a validated-elsewhere checkout request.
// Timestamp is client-supplied epoch milliseconds used as a staleness
// guard.
type CheckoutInput struct {
	ProductID  string
	SuccessURL string
	CancelURL  string
	Timestamp  int64
}

// Mailer sends a notification email. Injected so the service stays
// testable; a nil Mailer disables notifications.
type Mailer func(to, subject, htmlBody string) error
