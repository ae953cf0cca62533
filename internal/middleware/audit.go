package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
)

// RequestAudit logs every request with its outcome and latency. Enabled
// together with the audit log; purely observational, never rejects.
func RequestAudit(enabled bool) fiber.Handler {
	return func(c fiber.Ctx) error {
		if !enabled {
			return c.Next()
		}

		start := time.Now()

		// Capture request data BEFORE handler execution (Fiber reuses
		// context objects).
		method := c.Method()
		path := c.Path()
		ip := c.IP()

		err := c.Next()

		slog.Info("request audited",
			"method", method,
			"path", path,
			"ip", ip,
			"status", c.Response().StatusCode(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}
}
