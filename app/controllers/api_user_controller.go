package controllers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/app/repository"
	"github.com/ManuelReschke/PayFox/internal/pkg/billing"
	"github.com/ManuelReschke/PayFox/internal/pkg/usercontext"
)

// HandleUserProfile returns the authenticated caller's profile row.
func HandleUserProfile(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		log.Printf("profile: user %d lookup failed: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to fetch profile")
	}

	return c.JSON(user)
}

// HandleUserSubscriptions returns the caller's active purchase rows,
// newest first.
func HandleUserSubscriptions(svc *billing.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userCtx := usercontext.GetUserContext(c)
		if !userCtx.IsLoggedIn {
			return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
		}

		ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
		defer cancel()

		subscriptions, err := svc.ListActiveSubscriptions(ctx, userCtx.UserID)
		if err != nil {
			log.Printf("subscriptions: listing for user %d failed: %v", userCtx.UserID, err)
			return jsonError(c, fiber.StatusInternalServerError, "Failed to fetch subscriptions")
		}
		if subscriptions == nil {
			subscriptions = []models.Purchase{}
		}

		return c.JSON(subscriptions)
	}
}
