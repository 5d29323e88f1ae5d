package controllers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/app/repository"
	"github.com/ManuelReschke/PayFox/internal/pkg/token"
)

// HandleAuthLogin starts the OAuth flow for the :provider route param.
func HandleAuthLogin(c *fiber.Ctx) error {
	return gothfiber.BeginAuthHandler(c)
}

// HandleAuthCallback completes the OAuth flow, upserts the local user row
// and hands back a bearer token for the JSON APIs.
func HandleAuthCallback(c *fiber.Ctx) error {
	gothUser, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		log.Printf("oauth callback failed: %v", err)
		return jsonError(c, fiber.StatusUnauthorized, "Authentication failed")
	}
	if gothUser.Email == "" {
		return jsonError(c, fiber.StatusUnauthorized, "OAuth provider returned no email")
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().UpsertFromSignIn(&models.User{
		ProviderSubject: gothUser.UserID,
		Email:           gothUser.Email,
		Name:            gothUser.Name,
		AvatarURL:       gothUser.AvatarURL,
	})
	if err != nil {
		log.Printf("oauth sign-in upsert failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Sign-in failed")
	}

	bearer, err := token.Mint(user.ID)
	if err != nil {
		log.Printf("token mint failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Sign-in failed")
	}

	return c.JSON(fiber.Map{
		"token": bearer,
		"user":  user,
	})
}

// HandleAuthLogout drops the OAuth session cookie.
func HandleAuthLogout(c *fiber.Ctx) error {
	if err := gothfiber.Logout(c); err != nil {
		log.Printf("logout failed: %v", err)
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}
