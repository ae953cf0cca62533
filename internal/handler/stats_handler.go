package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rmoralesv/go-app-monitor/internal/service"
)

// StatsHandler serves store statistics.
type StatsHandler struct {
	usage *service.UsageService
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(usage *service.UsageService) *StatsHandler {
	return &StatsHandler{usage: usage}
}

// Register sets up stats routes.
func (h *StatsHandler) Register(router fiber.Router) {
	router.Get("/stats", h.Stats)
}

// Stats returns aggregate counts and store metadata.
func (h *StatsHandler) Stats(c fiber.Ctx) error {
	stats, err := h.usage.Stats(c.Context())
	if err != nil {
		return writeOpError(c, err)
	}
	return c.JSON(stats)
}
