package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/rmoralesv/go-app-monitor/internal/domain"
	"github.com/rmoralesv/go-app-monitor/internal/port"
	"github.com/rmoralesv/go-app-monitor/internal/service"
)

// UsageHandler handles usage record CRUD endpoints.
type UsageHandler struct {
	usage *service.UsageService
}

// NewUsageHandler creates a new usage handler.
func NewUsageHandler(usage *service.UsageService) *UsageHandler {
	return &UsageHandler{usage: usage}
}

// Register sets up usage routes.
func (h *UsageHandler) Register(router fiber.Router) {
	usage := router.Group("/usage")
	usage.Post("/", h.Insert)
	usage.Get("/", h.List)
	usage.Delete("/:id", h.Delete)
	usage.Get("/user/:user", h.ListByUser)
}

// Insert creates one usage record.
func (h *UsageHandler) Insert(c fiber.Ctx) error {
	var body struct {
		MonitorAppVersion  string `json:"monitor_app_version"`
		Platform           string `json:"platform"`
		User               string `json:"user"`
		ApplicationName    string `json:"application_name"`
		ApplicationVersion string `json:"application_version"`
		LogDate            string `json:"log_date"`
		LegacyApp          bool   `json:"legacy_app"`
		DurationSeconds    int64  `json:"duration_seconds"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	id, err := h.usage.Insert(c.Context(), domain.UsageRecord{
		MonitorAppVersion:  body.MonitorAppVersion,
		Platform:           body.Platform,
		User:               body.User,
		ApplicationName:    body.ApplicationName,
		ApplicationVersion: body.ApplicationVersion,
		LogDate:            body.LogDate,
		LegacyApp:          body.LegacyApp,
		DurationSeconds:    body.DurationSeconds,
	})
	if err != nil {
		return writeOpError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// Delete removes one usage record by id.
func (h *UsageHandler) Delete(c fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid record ID"})
	}

	if err := h.usage.Delete(c.Context(), id); err != nil {
		return writeOpError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": id})
}

// List returns usage records, newest first.
func (h *UsageHandler) List(c fiber.Ctx) error {
	limit := h.usage.MaxQueryResults()
	if v := c.Query("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	result, err := h.usage.List(c.Context(), limit)
	if err != nil {
		return writeOpError(c, err)
	}
	return c.JSON(result)
}

// ListByUser returns usage records for one user, newest log date first.
func (h *UsageHandler) ListByUser(c fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "0"))

	result, err := h.usage.ListByUser(c.Context(), c.Params("user"), limit)
	if err != nil {
		return writeOpError(c, err)
	}
	return c.JSON(result)
}

// writeOpError maps operation errors to HTTP responses. The generic store
// failure text is all a caller ever sees of a persistence fault.
func writeOpError(c fiber.Ctx, err error) error {
	var ve *port.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ve.Reason})
	case errors.Is(err, port.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "record not found"})
	case errors.Is(err, port.ErrPoolExhausted):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "server busy, try again later"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database operation failed"})
	}
}
