package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/rmoralesv/go-app-monitor/internal/service"
)

// AuditHandler handles audit log endpoints.
type AuditHandler struct {
	usage *service.UsageService
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(usage *service.UsageService) *AuditHandler {
	return &AuditHandler{usage: usage}
}

// Register sets up audit routes.
func (h *AuditHandler) Register(router fiber.Router) {
	audit := router.Group("/audit")
	audit.Get("/logs", h.ListLogs)
}

// ListLogs returns audit entries with optional action filtering.
func (h *AuditHandler) ListLogs(c fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	action := c.Query("action", "")

	logs, err := h.usage.AuditLogs(c.Context(), limit, action)
	if err != nil {
		return writeOpError(c, err)
	}
	return c.JSON(fiber.Map{
		"logs":  logs,
		"count": len(logs),
	})
}
