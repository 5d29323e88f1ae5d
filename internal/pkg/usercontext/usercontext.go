package usercontext

import "github.com/gofiber/fiber/v2"

// UserContext represents the authenticated caller for a request.
type UserContext struct {
	UserID     uint   `json:"user_id"`
	Email      string `json:"email"`
	IsLoggedIn bool   `json:"is_logged_in"`
}

// GetUserContext retrieves the user context from fiber context.
// Returns a default anonymous context if none is set.
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals(KeyUserContext); ctx != nil {
		return ctx.(UserContext)
	}
	return UserContext{IsLoggedIn: false}
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}
