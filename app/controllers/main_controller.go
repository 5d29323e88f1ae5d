package controllers

import "github.com/gofiber/fiber/v2"

// HandleIndex is the health probe used by deploy tooling.
func HandleIndex(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Server is running"})
}
