package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/rmoralesv/go-app-monitor/internal/ratelimit"
)

// RateLimit applies the shared admission gate to every request before any
// handler logic runs. The same limiter instance guards the MCP surface, so
// the window is global across both.
func RateLimit(limiter *ratelimit.Limiter) fiber.Handler {
	return func(c fiber.Ctx) error {
		if !limiter.Allow() {
			slog.Warn("rate limit exceeded", "path", c.Path())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		}
		return c.Next()
	}
}
