package controllers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PayFox/internal/pkg/billing"
)

type createCheckoutRequest struct {
	ProductID  string `json:"productId" validate:"required"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
	Timestamp  int64  `json:"timestamp" validate:"required"`
}

// HandleCreateCheckout requests a hosted checkout URL from the payment
// provider for a whitelisted product.
func HandleCreateCheckout(svc *billing.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createCheckoutRequest
		if err := c.BodyParser(&req); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "Invalid request")
		}
		if err := validate.Struct(&req); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "Invalid request")
		}

		ctx, cancel := context.WithTimeout(c.Context(), 20*time.Second)
		defer cancel()

		url, err := svc.CreateCheckout(ctx, billing.CheckoutInput{
			ProductID:  req.ProductID,
			SuccessURL: req.SuccessURL,
			CancelURL:  req.CancelURL,
			Timestamp:  req.Timestamp,
		})
		if err != nil {
			switch {
			case errors.Is(err, billing.ErrStaleRequest):
				return jsonError(c, fiber.StatusBadRequest, "Request expired")
			case errors.Is(err, billing.ErrInvalidProduct):
				return jsonError(c, fiber.StatusBadRequest, "Invalid product ID")
			case errors.Is(err, billing.ErrInvalidRedirectURL):
				return jsonError(c, fiber.StatusBadRequest, "Invalid redirect URL")
			case errors.Is(err, billing.ErrProviderUnavailable):
				return jsonError(c, fiber.StatusInternalServerError, "Payment service unavailable")
			default:
				log.Printf("checkout creation failed: %v", err)
				return jsonError(c, fiber.StatusInternalServerError, "Failed to create checkout session")
			}
		}

		return c.JSON(fiber.Map{"url": url})
	}
}
