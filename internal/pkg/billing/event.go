package billing

import (
	"encoding/json"
	"strings"
)

// EventKind enumerates the provider webhook event types the reconciler
// knows about. Anything else parses as EventUnrecognized and is
// acknowledged without a store mutation.
type EventKind string

const (
	EventCheckoutCompleted     EventKind = "checkout.session.completed"
	EventSubscriptionCreated   EventKind = "subscription.created"
	EventSubscriptionActive    EventKind = "subscription.active"
	EventSubscriptionRenewed   EventKind = "subscription.renewed"
	EventSubscriptionOnHold    EventKind = "subscription.on_hold"
	EventSubscriptionFailed    EventKind = "subscription.failed"
	EventSubscriptionCancelled EventKind = "subscription.cancelled"
	EventSubscriptionExpired   EventKind = "subscription.expired"
	EventUnrecognized          EventKind = "unrecognized"
)

// Event is the normalized form of a verified webhook delivery. Exactly one
// of Checkout/Subscription is set, depending on Kind.
type Event struct {
	Kind EventKind
	// Type keeps the raw provider event type for logging and audit rows.
	Type         string
	Checkout     *CheckoutPayload
	Subscription *SubscriptionPayload
	Raw          json.RawMessage
}

// CheckoutPayload is the normalized shape of a checkout.session.completed
// delivery.
type CheckoutPayload struct {
	SessionID     string
	CustomerEmail string
	ProductID     string
	Amount        int64
	Currency      string
	// RecurringCharge marks payment notifications for an existing
	// subscription (payload_type "Payment"). Those are reconciled through
	// the subscription.* events instead, to avoid double-counting.
	RecurringCharge bool
	Raw             json.RawMessage
}

// SubscriptionPayload is the normalized shape shared by all subscription.*
// deliveries. Field names vary slightly between subtypes; the parser
// resolves the variants so the reconciler never branches on field presence.
type SubscriptionPayload struct {
	SubscriptionID          string
	CustomerEmail           string
	ProductID               string
	Amount                  int64
	Currency                string
	CancelAtNextBillingDate bool
	CancelledAt             string
	NextBillingDate         string
	Raw                     json.RawMessage
}

// ParseEvent decodes a raw webhook body into its normalized event form.
// The raw data payload is carried along so the reconciler can persist it
// unmodified for audit and for deriving billing-date facts later.
func ParseEvent(body []byte) (*Event, error) {
	var envelope struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}

	kind := EventKind(strings.TrimSpace(envelope.Type))
	ev := &Event{Kind: kind, Type: envelope.Type, Raw: envelope.Data}

	switch kind {
	case EventCheckoutCompleted:
		payload, err := parseCheckoutPayload(envelope.Data)
		if err != nil {
			return nil, err
		}
		ev.Checkout = payload
	case EventSubscriptionCreated, EventSubscriptionActive, EventSubscriptionRenewed,
		EventSubscriptionOnHold, EventSubscriptionFailed, EventSubscriptionCancelled,
		EventSubscriptionExpired:
		payload, err := parseSubscriptionPayload(envelope.Data)
		if err != nil {
			return nil, err
		}
		ev.Subscription = payload
	default:
		ev.Kind = EventUnrecognized
	}
	return ev, nil
}

func parseCheckoutPayload(data json.RawMessage) (*CheckoutPayload, error) {
	var raw struct {
		ID          string `json:"id"`
		PayloadType string `json:"payload_type"`
		Customer    struct {
			Email string `json:"email"`
		} `json:"customer"`
		AmountTotal int64  `json:"amount_total"`
		Currency    string `json:"currency"`
		ProductCart []struct {
			ProductID string `json:"product_id"`
		} `json:"product_cart"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	out := &CheckoutPayload{
		SessionID:       strings.TrimSpace(raw.ID),
		CustomerEmail:   strings.TrimSpace(raw.Customer.Email),
		Amount:          raw.AmountTotal,
		Currency:        normalizeCurrency(raw.Currency),
		RecurringCharge: strings.EqualFold(strings.TrimSpace(raw.PayloadType), "Payment"),
		Raw:             data,
	}
	if len(raw.ProductCart) > 0 {
		out.ProductID = strings.TrimSpace(raw.ProductCart[0].ProductID)
	}
	return out, nil
}

func parseSubscriptionPayload(data json.RawMessage) (*SubscriptionPayload, error) {
	var raw struct {
		ID             string `json:"id"`
		SubscriptionID string `json:"subscription_id"`
		Customer       struct {
			Email string `json:"email"`
		} `json:"customer"`
		ProductID               string `json:"product_id"`
		RecurringPreTaxAmount   int64  `json:"recurring_pre_tax_amount"`
		AmountTotal             int64  `json:"amount_total"`
		Currency                string `json:"currency"`
		CancelAtNextBillingDate bool   `json:"cancel_at_next_billing_date"`
		CancelledAt             string `json:"cancelled_at"`
		NextBillingDate         string `json:"next_billing_date"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	subscriptionID := strings.TrimSpace(raw.SubscriptionID)
	if subscriptionID == "" {
		subscriptionID = strings.TrimSpace(raw.ID)
	}
	amount := raw.RecurringPreTaxAmount
	if amount == 0 {
		amount = raw.AmountTotal
	}

	return &SubscriptionPayload{
		SubscriptionID:          subscriptionID,
		CustomerEmail:           strings.TrimSpace(raw.Customer.Email),
		ProductID:               strings.TrimSpace(raw.ProductID),
		Amount:                  amount,
		Currency:                normalizeCurrency(raw.Currency),
		CancelAtNextBillingDate: raw.CancelAtNextBillingDate,
		CancelledAt:             strings.TrimSpace(raw.CancelledAt),
		NextBillingDate:         strings.TrimSpace(raw.NextBillingDate),
		Raw:                     data,
	}, nil
}

func normalizeCurrency(currency string) string {
	c := strings.ToLower(strings.TrimSpace(currency))
	if c == "" {
		return "usd"
	}
	return c
}
