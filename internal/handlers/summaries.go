package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"nuuko/internal/metrics"
	"nuuko/internal/store"
	"nuuko/internal/summary"
)

// SummaryHandler handles summary generation and history
type SummaryHandler struct {
	store   *store.Store
	service *summary.Service
}

// NewSummaryHandler creates a new summary handler
func NewSummaryHandler(s *store.Store, service *summary.Service) *SummaryHandler {
	return &SummaryHandler{store: s, service: service}
}

// List returns stored summaries, newest first
func (h *SummaryHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"summaries": h.store.Summaries()})
}

// Generate produces a summary for the requested range, or queues it offline
func (h *SummaryHandler) Generate(c *fiber.Ctx) error {
	var req summary.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid summary request"})
	}

	started := time.Now()
	res, err := h.service.Generate(c.Context(), req)
	if m := metrics.Get(); m != nil {
		m.SummaryLatency.Observe(time.Since(started).Seconds())
		m.SummaryGenerations.WithLabelValues(generateOutcome(res, err)).Inc()
	}
	if err != nil {
		switch {
		case errors.Is(err, summary.ErrNoEntries):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, summary.ErrNoAPIKey):
			return c.Status(fiber.StatusPreconditionFailed).JSON(fiber.Map{"error": err.Error()})
		default:
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "summary generation failed"})
		}
	}
	if res.Queued {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"queued": true, "pending": h.service.QueueLength()})
	}
	return c.JSON(res.Record)
}

// Delete removes a stored summary
func (h *SummaryHandler) Delete(c *fiber.Ctx) error {
	if err := h.store.DeleteSummaryRecord(c.Context(), c.Params("id")); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete summary"})
	}
	return c.JSON(fiber.Map{"deleted": true})
}

// Telemetry returns the pipeline's diagnostic ring log, newest first
func (h *SummaryHandler) Telemetry(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"events": h.service.Telemetry()})
}

// FlushQueue drains queued summary jobs
func (h *SummaryHandler) FlushQueue(c *fiber.Ctx) error {
	flushed, err := h.service.FlushQueue(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   "queue flush stopped",
			"flushed": flushed,
			"pending": h.service.QueueLength(),
		})
	}
	return c.JSON(fiber.Map{"flushed": flushed, "pending": h.service.QueueLength()})
}

func generateOutcome(res summary.Result, err error) string {
	switch {
	case err != nil:
		return "error"
	case res.Queued:
		return "queued"
	case res.Record != nil:
		return res.Record.Status
	default:
		return "unknown"
	}
}
