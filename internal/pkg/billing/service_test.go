package billing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PayFox/app/models"
)

type fakeRepo struct {
	users     map[string]*models.User
	purchases map[string]*models.Purchase
	events    map[string]*models.WebhookEvent
	nextID    uint
	failWith  error
}

func newFakeRepo(users ...*models.User) *fakeRepo {
	r := &fakeRepo{
		users:     map[string]*models.User{},
		purchases: map[string]*models.Purchase{},
		events:    map[string]*models.WebhookEvent{},
	}
	for _, u := range users {
		r.users[models.NormalizeEmail(u.Email)] = u
	}
	return r
}

func (r *fakeRepo) GetUserByEmail(email string) (*models.User, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	u, ok := r.users[models.NormalizeEmail(email)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeRepo) InsertPurchaseIfNotExists(p *models.Purchase) (bool, error) {
	if r.failWith != nil {
		return false, r.failWith
	}
	if _, exists := r.purchases[p.DodoSessionID]; exists {
		return false, nil
	}
	r.nextID++
	p.ID = r.nextID
	r.purchases[p.DodoSessionID] = p
	return true, nil
}

func (r *fakeRepo) UpsertSubscription(p *models.Purchase) error {
	if r.failWith != nil {
		return r.failWith
	}
	if existing, ok := r.purchases[p.DodoSessionID]; ok {
		p.ID = existing.ID
	} else {
		r.nextID++
		p.ID = r.nextID
	}
	r.purchases[p.DodoSessionID] = p
	return nil
}

func (r *fakeRepo) GetPurchaseBySessionAndUser(sessionID string, userID uint) (*models.Purchase, error) {
	p, ok := r.purchases[sessionID]
	if !ok || p.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *fakeRepo) UpdatePurchase(sessionID string, userID uint, status, paymentData string) (int64, error) {
	if r.failWith != nil {
		return 0, r.failWith
	}
	p, ok := r.purchases[sessionID]
	if !ok || p.UserID != userID {
		return 0, nil
	}
	p.Status = status
	p.PaymentData = paymentData
	return 1, nil
}

func (r *fakeRepo) ListActivePurchasesByUser(userID uint) ([]models.Purchase, error) {
	var out []models.Purchase
	for _, p := range r.purchases {
		if p.UserID == userID && p.Status == models.PurchaseStatusActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	if stored, ok := r.events[event.ProviderEventID]; ok {
		return false, stored, nil
	}
	r.nextID++
	event.ID = r.nextID
	r.events[event.ProviderEventID] = event
	return true, event, nil
}

func (r *fakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	for _, e := range r.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeDodo struct {
	session     *CheckoutSession
	createErr   error
	updateErr   error
	retrieveErr error

	updatedID       string
	cancelAtNextArg bool
	retrieved       json.RawMessage
}

func (d *fakeDodo) CreateCheckoutSession(_ context.Context, productID, returnURL string) (*CheckoutSession, error) {
	if d.createErr != nil {
		return nil, d.createErr
	}
	return d.session, nil
}

func (d *fakeDodo) UpdateSubscription(_ context.Context, subscriptionID string, cancelAtNextBillingDate bool) error {
	if d.updateErr != nil {
		return d.updateErr
	}
	d.updatedID = subscriptionID
	d.cancelAtNextArg = cancelAtNextBillingDate
	return nil
}

func (d *fakeDodo) GetSubscription(_ context.Context, subscriptionID string) (json.RawMessage, error) {
	if d.retrieveErr != nil {
		return nil, d.retrieveErr
	}
	return d.retrieved, nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func TestCreateCheckout_Validation(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil)
	ctx := context.Background()

	_, err := svc.CreateCheckout(ctx, CheckoutInput{ProductID: ProductBasic, Timestamp: 0})
	assert.ErrorIs(t, err, ErrStaleRequest)

	stale := time.Now().Add(-6 * time.Minute).UnixMilli()
	_, err = svc.CreateCheckout(ctx, CheckoutInput{ProductID: ProductBasic, Timestamp: stale})
	assert.ErrorIs(t, err, ErrStaleRequest)

	_, err = svc.CreateCheckout(ctx, CheckoutInput{ProductID: "pdt_evil", Timestamp: nowMillis()})
	assert.ErrorIs(t, err, ErrInvalidProduct)

	_, err = svc.CreateCheckout(ctx, CheckoutInput{ProductID: ProductBasic, SuccessURL: "javascript:alert(1)", Timestamp: nowMillis()})
	assert.ErrorIs(t, err, ErrInvalidRedirectURL)

	// Valid input but no provider client configured.
	_, err = svc.CreateCheckout(ctx, CheckoutInput{ProductID: ProductBasic, Timestamp: nowMillis()})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestCreateCheckout_Provider(t *testing.T) {
	ctx := context.Background()

	dodo := &fakeDodo{createErr: errors.New("boom")}
	svc := NewService(newFakeRepo(), dodo, nil)
	_, err := svc.CreateCheckout(ctx, CheckoutInput{ProductID: ProductPro, Timestamp: nowMillis()})
	assert.ErrorIs(t, err, ErrProviderError)

	dodo = &fakeDodo{session: &CheckoutSession{SessionID: "cs_1", CheckoutURL: "https://checkout.dodopayments.com/cs_1"}}
	svc = NewService(newFakeRepo(), dodo, nil)
	url, err := svc.CreateCheckout(ctx, CheckoutInput{ProductID: ProductPro, Timestamp: nowMillis()})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.dodopayments.com/cs_1", url)
}

func mustParse(t *testing.T, body string) *Event {
	t.Helper()
	ev, err := ParseEvent([]byte(body))
	require.NoError(t, err)
	return ev
}

func TestProcessEvent_CheckoutCompleted(t *testing.T) {
	user := &models.User{ID: 7, Email: "buyer@example.com", Name: "Buyer"}
	repo := newFakeRepo(user)
	var mailedTo string
	mailer := func(to, subject, body string) error {
		mailedTo = to
		return nil
	}
	svc := NewService(repo, nil, mailer)

	body := `{
		"type": "checkout.session.completed",
		"data": {
			"id": "cs_pay1",
			"customer": { "email": "buyer@example.com" },
			"amount_total": 990,
			"currency": "usd",
			"product_cart": [ { "product_id": "` + ProductPro + `" } ]
		}
	}`

	require.NoError(t, svc.ProcessEvent(context.Background(), mustParse(t, body)))

	p := repo.purchases["cs_pay1"]
	require.NotNil(t, p)
	assert.Equal(t, uint(7), p.UserID)
	assert.Equal(t, models.PurchaseStatusCompleted, p.Status)
	assert.Equal(t, models.PlanTypePro, p.PlanType)
	assert.Equal(t, int64(990), p.Amount)
	assert.Equal(t, "buyer@example.com", mailedTo)

	// Redelivery with the same session id must not create a second row
	// nor send a second mail.
	mailedTo = ""
	require.NoError(t, svc.ProcessEvent(context.Background(), mustParse(t, body)))
	assert.Len(t, repo.purchases, 1)
	assert.Empty(t, mailedTo)
}

func TestProcessEvent_SkipsRecurringPaymentNotification(t *testing.T) {
	repo := newFakeRepo(&models.User{ID: 1, Email: "buyer@example.com"})
	svc := NewService(repo, nil, nil)

	ev := mustParse(t, `{
		"type": "checkout.session.completed",
		"data": { "payload_type": "Payment", "customer": { "email": "buyer@example.com" } }
	}`)

	require.NoError(t, svc.ProcessEvent(context.Background(), ev))
	assert.Empty(t, repo.purchases)
}

func TestProcessEvent_UnknownUserIsSkippedNotFatal(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	ev := mustParse(t, `{
		"type": "subscription.active",
		"data": {
			"subscription_id": "sub_1",
			"customer": { "email": "stranger@example.com" },
			"product_id": "`+ProductMax+`"
		}
	}`)

	require.NoError(t, svc.ProcessEvent(context.Background(), ev))
	assert.Empty(t, repo.purchases)
}

func TestProcessEvent_SubscriptionRedeliveryIsIdempotent(t *testing.T) {
	repo := newFakeRepo(&models.User{ID: 3, Email: "sub@example.com"})
	svc := NewService(repo, nil, nil)

	first := `{
		"type": "subscription.active",
		"data": {
			"subscription_id": "sub_42",
			"customer": { "email": "sub@example.com" },
			"product_id": "` + ProductMax + `",
			"recurring_pre_tax_amount": 2900,
			"next_billing_date": "2026-09-30T00:00:00Z"
		}
	}`
	second := `{
		"type": "subscription.active",
		"data": {
			"subscription_id": "sub_42",
			"customer": { "email": "sub@example.com" },
			"product_id": "` + ProductMax + `",
			"recurring_pre_tax_amount": 2900,
			"next_billing_date": "2026-10-30T00:00:00Z"
		}
	}`

	require.NoError(t, svc.ProcessEvent(context.Background(), mustParse(t, first)))
	require.NoError(t, svc.ProcessEvent(context.Background(), mustParse(t, second)))

	require.Len(t, repo.purchases, 1)
	p := repo.purchases["sub_42"]
	assert.Equal(t, models.PurchaseStatusActive, p.Status)
	assert.Equal(t, models.PlanTypeSubscription, p.PlanType)
	// Payload must reflect the most recent delivery.
	assert.Contains(t, p.PaymentData, "2026-10-30")
}

func TestProcessEvent_CreatedAndActiveShareOnePath(t *testing.T) {
	repo := newFakeRepo(&models.User{ID: 3, Email: "sub@example.com"})
	svc := NewService(repo, nil, nil)

	created := `{
		"type": "subscription.created",
		"data": {
			"id": "sub_55",
			"customer": { "email": "sub@example.com" },
			"product_id": "` + ProductPro + `"
		}
	}`
	active := `{
		"type": "subscription.active",
		"data": {
			"subscription_id": "sub_55",
			"customer": { "email": "sub@example.com" },
			"product_id": "` + ProductPro + `"
		}
	}`

	require.NoError(t, svc.ProcessEvent(context.Background(), mustParse(t, created)))
	require.NoError(t, svc.ProcessEvent(context.Background(), mustParse(t, active)))
	assert.Len(t, repo.purchases, 1)
}

func TestProcessEvent_CancelledForUnknownSubscription(t *testing.T) {
	repo := newFakeRepo(&models.User{ID: 3, Email: "sub@example.com"})
	svc := NewService(repo, nil, nil)

	ev := mustParse(t, `{
		"type": "subscription.cancelled",
		"data": { "subscription_id": "sub_missing", "customer": { "email": "sub@example.com" } }
	}`)

	// Unknown rows are logged and skipped; the delivery is still acknowledged.
	require.NoError(t, svc.ProcessEvent(context.Background(), ev))
	assert.Empty(t, repo.purchases)
}

func TestProcessEvent_StatusTransitions(t *testing.T) {
	tests := []struct {
		eventType string
		want      string
	}{
		{eventType: "subscription.renewed", want: models.PurchaseStatusActive},
		{eventType: "subscription.on_hold", want: models.PurchaseStatusOnHold},
		{eventType: "subscription.failed", want: models.PurchaseStatusFailed},
		{eventType: "subscription.cancelled", want: models.PurchaseStatusCancelled},
		{eventType: "subscription.expired", want: models.PurchaseStatusExpired},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			repo := newFakeRepo(&models.User{ID: 3, Email: "sub@example.com"})
			repo.purchases["sub_9"] = &models.Purchase{
				ID: 1, UserID: 3, DodoSessionID: "sub_9",
				Status: models.PurchaseStatusActive, PlanType: models.PlanTypeSubscription,
			}
			svc := NewService(repo, nil, nil)

			ev := mustParse(t, `{
				"type": "`+tt.eventType+`",
				"data": { "subscription_id": "sub_9", "customer": { "email": "sub@example.com" } }
			}`)
			require.NoError(t, svc.ProcessEvent(context.Background(), ev))
			assert.Equal(t, tt.want, repo.purchases["sub_9"].Status)
		})
	}
}

func TestProcessEvent_StorageErrorIsSurfaced(t *testing.T) {
	repo := newFakeRepo(&models.User{ID: 3, Email: "sub@example.com"})
	repo.failWith = errors.New("connection refused")
	svc := NewService(repo, nil, nil)

	ev := mustParse(t, `{
		"type": "subscription.active",
		"data": { "subscription_id": "sub_1", "customer": { "email": "sub@example.com" }, "product_id": "`+ProductPro+`" }
	}`)
	assert.Error(t, svc.ProcessEvent(context.Background(), ev))
}

func TestCancelSubscription_Ownership(t *testing.T) {
	repo := newFakeRepo()
	repo.purchases["sub_owned"] = &models.Purchase{ID: 1, UserID: 10, DodoSessionID: "sub_owned", Status: models.PurchaseStatusActive}
	svc := NewService(repo, &fakeDodo{}, nil)

	// Another user's subscription id reads as not found, never forbidden.
	err := svc.CancelSubscription(context.Background(), 99, "sub_owned", true)
	assert.ErrorIs(t, err, ErrPurchaseNotFound)

	err = svc.CancelSubscription(context.Background(), 10, "sub_never", true)
	assert.ErrorIs(t, err, ErrPurchaseNotFound)
}

func TestCancelSubscription_Immediate(t *testing.T) {
	repo := newFakeRepo()
	repo.purchases["sub_1"] = &models.Purchase{ID: 1, UserID: 10, DodoSessionID: "sub_1", Status: models.PurchaseStatusActive}
	dodo := &fakeDodo{retrieved: json.RawMessage(`{"subscription_id":"sub_1","status":"cancelled","cancelled_at":"2026-08-30T10:00:00Z"}`)}
	svc := NewService(repo, dodo, nil)

	require.NoError(t, svc.CancelSubscription(context.Background(), 10, "sub_1", true))

	assert.Equal(t, "sub_1", dodo.updatedID)
	assert.False(t, dodo.cancelAtNextArg)
	p := repo.purchases["sub_1"]
	assert.Equal(t, models.PurchaseStatusCancelled, p.Status)
	assert.Contains(t, p.PaymentData, "cancelled_at")
}

func TestCancelSubscription_Scheduled(t *testing.T) {
	repo := newFakeRepo()
	repo.purchases["sub_2"] = &models.Purchase{ID: 1, UserID: 10, DodoSessionID: "sub_2", Status: models.PurchaseStatusActive}
	dodo := &fakeDodo{retrieved: json.RawMessage(`{"subscription_id":"sub_2","status":"active","cancel_at_next_billing_date":true}`)}
	svc := NewService(repo, dodo, nil)

	require.NoError(t, svc.CancelSubscription(context.Background(), 10, "sub_2", false))

	assert.True(t, dodo.cancelAtNextArg)
	p := repo.purchases["sub_2"]
	// Scheduled cancellation keeps the row active; the scheduling fact is
	// only recoverable from the embedded payload.
	assert.Equal(t, models.PurchaseStatusActive, p.Status)
	assert.Contains(t, p.PaymentData, `"cancel_at_next_billing_date":true`)
}

func TestCancelSubscription_ProviderFailureLeavesStateUntouched(t *testing.T) {
	repo := newFakeRepo()
	repo.purchases["sub_3"] = &models.Purchase{ID: 1, UserID: 10, DodoSessionID: "sub_3", Status: models.PurchaseStatusActive, PaymentData: "original"}
	dodo := &fakeDodo{updateErr: errors.New("502 bad gateway")}
	svc := NewService(repo, dodo, nil)

	err := svc.CancelSubscription(context.Background(), 10, "sub_3", true)
	assert.ErrorIs(t, err, ErrProviderError)
	assert.Equal(t, models.PurchaseStatusActive, repo.purchases["sub_3"].Status)
	assert.Equal(t, "original", repo.purchases["sub_3"].PaymentData)
}

func TestRecordWebhookEvent_Dedupe(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	created, stored, err := svc.RecordWebhookEvent(ctx, WebhookEventInput{
		ProviderEventID: "msg_1", EventType: "subscription.active", PayloadJSON: "{}", SignatureValid: true,
	})
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, stored)

	created, _, err = svc.RecordWebhookEvent(ctx, WebhookEventInput{
		ProviderEventID: "msg_1", EventType: "subscription.active", PayloadJSON: "{}", SignatureValid: true,
	})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestRecordWebhookEvent_HashFallbackID(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	created, stored, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		EventType: "subscription.active", PayloadJSON: `{"a":1}`,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Contains(t, stored.ProviderEventID, "hash:")
}
