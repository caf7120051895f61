package middleware

import (
	"casalink/config"
	"casalink/models"

	"github.com/gofiber/fiber/v2"
)

// WidgetAPIKey validates the shared secret the public chat widget presents
// on every request. This is a simpler check than operator auth: it
// identifies an installation, not a user.
func WidgetAPIKey() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("X-Api-Key")
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "API key required",
			})
		}

		var apiKey models.APIKey
		if err := config.DB.Where("key = ? AND is_active = ?", key, true).First(&apiKey).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid API key",
			})
		}

		c.Locals("apiKey", &apiKey)
		return c.Next()
	}
}
