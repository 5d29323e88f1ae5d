package controllers

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

func jsonError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func firstHeaderValue(c *fiber.Ctx, keys ...string) string {
	for _, k := range keys {
		v := strings.TrimSpace(c.Get(k))
		if v != "" {
			return v
		}
	}
	return ""
}
