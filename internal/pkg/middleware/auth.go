package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PayFox/app/repository"
	"github.com/ManuelReschke/PayFox/internal/pkg/token"
	"github.com/ManuelReschke/PayFox/internal/pkg/usercontext"
)

// BearerAuthMiddleware authenticates requests carrying a bearer token and
// loads the caller into the request's user context. Missing, malformed,
// badly signed and expired tokens all produce 401.
func BearerAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := extractBearerToken(c)
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing bearer token"})
		}

		userID, err := token.Verify(raw)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid token"})
		}

		user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userID)
		if err != nil {
			log.Printf("bearer auth: user %d lookup failed: %v", userID, err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Unknown user"})
		}

		c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
			UserID:     user.ID,
			Email:      user.Email,
			IsLoggedIn: true,
		})
		c.Locals(usercontext.KeyUserID, user.ID)

		return c.Next()
	}
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
