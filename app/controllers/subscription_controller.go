package controllers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PayFox/internal/pkg/billing"
	"github.com/ManuelReschke/PayFox/internal/pkg/usercontext"
)

type cancelSubscriptionRequest struct {
	SubscriptionID    string `json:"subscriptionId" validate:"required"`
	CancelImmediately bool   `json:"cancelImmediately"`
}

// HandleCancelSubscription cancels a caller-owned subscription at the
// provider and mirrors the outcome locally.
func HandleCancelSubscription(svc *billing.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userCtx := usercontext.GetUserContext(c)
		if !userCtx.IsLoggedIn {
			return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
		}

		var req cancelSubscriptionRequest
		if err := c.BodyParser(&req); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "Subscription ID is required")
		}
		if err := validate.Struct(&req); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "Subscription ID is required")
		}

		ctx, cancel := context.WithTimeout(c.Context(), 30*time.Second)
		defer cancel()

		err := svc.CancelSubscription(ctx, userCtx.UserID, req.SubscriptionID, req.CancelImmediately)
		if err != nil {
			switch {
			case errors.Is(err, billing.ErrPurchaseNotFound):
				return jsonError(c, fiber.StatusNotFound, "Subscription not found")
			case errors.Is(err, billing.ErrProviderUnavailable):
				return jsonError(c, fiber.StatusInternalServerError, "Payment service unavailable")
			case errors.Is(err, billing.ErrProviderError):
				log.Printf("subscription cancel: provider call failed: %v", err)
				return jsonError(c, fiber.StatusInternalServerError, "Failed to cancel subscription with payment provider")
			default:
				log.Printf("subscription cancel: %v", err)
				return jsonError(c, fiber.StatusInternalServerError, "Failed to update subscription status")
			}
		}

		return c.JSON(fiber.Map{"message": "Subscription cancelled successfully"})
	}
}
