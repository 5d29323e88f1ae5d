package controllers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PayFox/internal/pkg/billing"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
)

// HandleDodoWebhook receives signed provider events and hands them to the
// reconciler. Verification is bound to the exact request bytes, so the
// handler works on the raw body and never a parsed form. The provider
// treats any non-2xx as undelivered and retries; only signature and
// configuration problems surface as error statuses, every application
// outcome is acknowledged with {received:true}.
func HandleDodoWebhook(svc *billing.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rawBody := append([]byte(nil), c.BodyRaw()...)
		msgID := firstHeaderValue(c, "webhook-id", "svix-id")
		signature := firstHeaderValue(c, "webhook-signature", "svix-signature")
		timestamp := firstHeaderValue(c, "webhook-timestamp", "svix-timestamp")
		secret := env.GetEnv("DODO_WEBHOOK_SECRET", "")

		verifyErr := billing.VerifyWebhookSignature(rawBody, msgID, timestamp, signature, secret)
		if errors.Is(verifyErr, billing.ErrMissingSecret) {
			log.Print("webhook: DODO_WEBHOOK_SECRET is not configured")
			return jsonError(c, fiber.StatusInternalServerError, "Webhook configuration error")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		created, stored, err := svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
			ProviderEventID: msgID,
			EventType:       eventTypeFromBody(rawBody),
			PayloadJSON:     string(rawBody),
			SignatureValid:  verifyErr == nil,
		})
		if err != nil {
			log.Printf("webhook: persisting event failed: %v", err)
			return jsonError(c, fiber.StatusInternalServerError, "Webhook processing failed")
		}

		if verifyErr != nil {
			_ = svc.MarkWebhookProcessed(ctx, stored.ID, verifyErr)
			return jsonError(c, fiber.StatusUnauthorized, "Invalid signature")
		}

		// A delivery already verified and processed earlier is acknowledged
		// without reprocessing. Replays of an id first seen with a bad
		// signature fall through and get processed now.
		if !created && stored.SignatureValid && stored.ProcessedAt != nil {
			return c.JSON(fiber.Map{"received": true})
		}

		event, err := billing.ParseEvent(rawBody)
		if err != nil {
			log.Printf("webhook: malformed payload for event %s: %v", msgID, err)
			_ = svc.MarkWebhookProcessed(ctx, stored.ID, err)
			return c.JSON(fiber.Map{"received": true})
		}

		processErr := svc.ProcessEvent(ctx, event)
		if processErr != nil {
			log.Printf("webhook: processing %s failed: %v", event.Type, processErr)
		}
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, processErr)

		return c.JSON(fiber.Map{"received": true})
	}
}

// eventTypeFromBody pulls the raw type for the audit row; parsing failures
// just leave it empty.
func eventTypeFromBody(body []byte) string {
	ev, err := billing.ParseEvent(body)
	if err != nil {
		return ""
	}
	return ev.Type
}
