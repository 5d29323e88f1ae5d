package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
)

const checkoutMaxAge = 5 * time.Minute

// Service reconciles provider events into the purchases table and fronts
// the synchronous provider calls (checkout creation, cancellation).
type Service struct {
	repo   Repository
	dodo   DodoAPI
	mailer Mailer
}

// NewService creates a billing service. dodo may be nil when the provider
// is not configured; synchronous provider operations then fail with
// ErrProviderUnavailable while webhook reconciliation keeps working.
func NewService(repo Repository, dodo DodoAPI, mailer Mailer) *Service {
	return &Service{repo: repo, dodo: dodo, mailer: mailer}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, dodo DodoAPI, mailer Mailer) *Service {
	return NewService(NewRepository(db), dodo, mailer)
}

// CreateCheckout validates a checkout request and asks the provider for a
// hosted checkout URL.
func (s *Service) CreateCheckout(ctx context.Context, in CheckoutInput) (string, error) {
	if in.Timestamp <= 0 {
		return "", ErrStaleRequest
	}
	age := time.Since(time.UnixMilli(in.Timestamp))
	if age > checkoutMaxAge {
		return "", ErrStaleRequest
	}

	if !IsKnownProduct(in.ProductID) {
		return "", ErrInvalidProduct
	}

	successURL := strings.TrimSpace(in.SuccessURL)
	if successURL == "" {
		successURL = defaultSuccessURL()
	} else if !strings.HasPrefix(successURL, "http") {
		return "", ErrInvalidRedirectURL
	}
	if cancelURL := strings.TrimSpace(in.CancelURL); cancelURL != "" && !strings.HasPrefix(cancelURL, "http") {
		return "", ErrInvalidRedirectURL
	}

	if s.dodo == nil {
		return "", ErrProviderUnavailable
	}

	session, err := s.dodo.CreateCheckoutSession(ctx, strings.TrimSpace(in.ProductID), successURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderError, err)
	}
	return session.CheckoutURL, nil
}

// ProcessEvent applies one verified webhook event to the store. User or
// row misses are recoverable conditions: they are logged and skipped, and
// the delivery is still acknowledged. Only persistence failures return an
// error.
func (s *Service) ProcessEvent(ctx context.Context, ev *Event) error {
	switch ev.Kind {
	case EventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, ev.Checkout)
	case EventSubscriptionCreated, EventSubscriptionActive:
		return s.handleSubscriptionUpsert(ctx, ev.Subscription)
	case EventSubscriptionRenewed:
		// Renewal keeps the row active but refreshes the billing-date facts
		// embedded in the payload.
		return s.updateSubscription(ctx, ev.Subscription, models.PurchaseStatusActive)
	case EventSubscriptionOnHold:
		return s.updateSubscription(ctx, ev.Subscription, models.PurchaseStatusOnHold)
	case EventSubscriptionFailed:
		return s.updateSubscription(ctx, ev.Subscription, models.PurchaseStatusFailed)
	case EventSubscriptionCancelled:
		return s.updateSubscription(ctx, ev.Subscription, models.PurchaseStatusCancelled)
	case EventSubscriptionExpired:
		return s.updateSubscription(ctx, ev.Subscription, models.PurchaseStatusExpired)
	case EventUnrecognized:
		log.Printf("billing: ignoring unrecognized webhook event type %q", ev.Type)
		return nil
	default:
		log.Printf("billing: ignoring unhandled webhook event kind %q", ev.Kind)
		return nil
	}
}

func (s *Service) handleCheckoutCompleted(_ context.Context, p *CheckoutPayload) error {
	if p.RecurringCharge {
		// Recurring charges arrive again as subscription.* events; saving
		// them here would double-count.
		log.Print("billing: skipping recurring payment notification")
		return nil
	}
	if p.ProductID == "" {
		log.Printf("billing: checkout %s carries no product id, skipping", p.SessionID)
		return nil
	}

	user, err := s.repo.GetUserByEmail(p.CustomerEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("billing: no user for checkout email %q, skipping", p.CustomerEmail)
			return nil
		}
		return err
	}

	created, err := s.repo.InsertPurchaseIfNotExists(&models.Purchase{
		UserID:        user.ID,
		DodoSessionID: p.SessionID,
		ProductID:     p.ProductID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        models.PurchaseStatusCompleted,
		PlanType:      PlanTypeForProduct(p.ProductID),
		PaymentData:   string(p.Raw),
	})
	if err != nil {
		return err
	}
	if created {
		s.sendPurchaseConfirmation(user, PlanTypeForProduct(p.ProductID))
	}
	return nil
}

func (s *Service) handleSubscriptionUpsert(_ context.Context, p *SubscriptionPayload) error {
	if p.SubscriptionID == "" || p.ProductID == "" {
		log.Print("billing: subscription event missing subscription or product id, skipping")
		return nil
	}

	user, err := s.repo.GetUserByEmail(p.CustomerEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("billing: no user for subscription email %q, skipping", p.CustomerEmail)
			return nil
		}
		return err
	}

	return s.repo.UpsertSubscription(&models.Purchase{
		UserID:        user.ID,
		DodoSessionID: p.SubscriptionID,
		ProductID:     p.ProductID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        models.PurchaseStatusActive,
		PlanType:      models.PlanTypeSubscription,
		PaymentData:   string(p.Raw),
	})
}

func (s *Service) updateSubscription(_ context.Context, p *SubscriptionPayload, status string) error {
	if p.SubscriptionID == "" {
		log.Print("billing: subscription event missing subscription id, skipping")
		return nil
	}

	user, err := s.repo.GetUserByEmail(p.CustomerEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("billing: no user for subscription email %q, skipping", p.CustomerEmail)
			return nil
		}
		return err
	}

	affected, err := s.repo.UpdatePurchase(p.SubscriptionID, user.ID, status, string(p.Raw))
	if err != nil {
		return err
	}
	if affected == 0 {
		log.Printf("billing: no purchase row for subscription %s (user %d), skipping", p.SubscriptionID, user.ID)
	}
	return nil
}

// CancelSubscription cancels a caller-owned subscription at the provider
// and mirrors the result locally. With cancelImmediately=false the row
// stays active; the scheduling fact lives in the refreshed payload.
func (s *Service) CancelSubscription(ctx context.Context, userID uint, subscriptionID string, cancelImmediately bool) error {
	row, err := s.repo.GetPurchaseBySessionAndUser(subscriptionID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Not-owned rows report the same as missing rows so callers
			// cannot probe for other users' subscription ids.
			return ErrPurchaseNotFound
		}
		return err
	}

	if s.dodo == nil {
		return ErrProviderUnavailable
	}

	if err := s.dodo.UpdateSubscription(ctx, row.DodoSessionID, !cancelImmediately); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderError, err)
	}

	refreshed, err := s.dodo.GetSubscription(ctx, row.DodoSessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderError, err)
	}

	newStatus := models.PurchaseStatusActive
	if cancelImmediately {
		newStatus = models.PurchaseStatusCancelled
	}
	if _, err := s.repo.UpdatePurchase(row.DodoSessionID, userID, newStatus, string(refreshed)); err != nil {
		return err
	}
	return nil
}

// ListActiveSubscriptions returns the user's active purchase rows,
// newest first.
func (s *Service) ListActiveSubscriptions(_ context.Context, userID uint) ([]models.Purchase, error) {
	return s.repo.ListActivePurchasesByUser(userID)
}

// RecordWebhookEvent persists webhook payloads idempotently. Deliveries
// without an event id are deduplicated on a payload hash.
func (s *Service) RecordWebhookEvent(_ context.Context, in WebhookEventInput) (bool, *models.WebhookEvent, error) {
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.WebhookEvent{
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional
// error.
func (s *Service) MarkWebhookProcessed(_ context.Context, webhookEventID uint, processingErr error) error {
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

func defaultSuccessURL() string {
	base := strings.TrimRight(env.GetEnv("FRONTEND_URL", "http://localhost:3000"), "/")
	return base + "/success"
}

func (s *Service) sendPurchaseConfirmation(user *models.User, planType string) {
	if s.mailer == nil {
		return
	}
	subject := "Your PayFox purchase"
	body := fmt.Sprintf("<p>Hi %s,</p><p>thanks for your purchase. Your <b>%s</b> plan is now available.</p>", user.Name, planType)
	if err := s.mailer(user.Email, subject, body); err != nil {
		log.Printf("billing: purchase confirmation mail to %s failed: %v", user.Email, err)
	}
}
