package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"nuuko/internal/analytics"
	"nuuko/internal/models"
	"nuuko/internal/store"
)

// InsightsHandler handles wrapped metrics and the insights cache
type InsightsHandler struct {
	store *store.Store
}

// NewInsightsHandler creates a new insights handler
func NewInsightsHandler(s *store.Store) *InsightsHandler {
	return &InsightsHandler{store: s}
}

// Wrapped computes wrapped metrics over an optional range
func (h *InsightsHandler) Wrapped(c *fiber.Ctx) error {
	var opts analytics.Options
	if start, err := strconv.ParseInt(c.Query("startMs"), 10, 64); err == nil && start > 0 {
		opts.Range.Start = time.UnixMilli(start)
	}
	if end, err := strconv.ParseInt(c.Query("endMs"), 10, 64); err == nil && end > 0 {
		opts.Range.End = time.UnixMilli(end)
	}
	metrics := analytics.ComputeWrappedMetrics(h.store.Entries(), opts)
	return c.JSON(metrics)
}

// Snapshot computes the analytics snapshot over all entries
func (h *InsightsHandler) Snapshot(c *fiber.Ctx) error {
	return c.JSON(analytics.BuildSnapshot(h.store.Entries()))
}

// GetCache returns cached insights records
func (h *InsightsHandler) GetCache(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"insights": h.store.Insights()})
}

// PutCache stores a cached insights record
func (h *InsightsHandler) PutCache(c *fiber.Ctx) error {
	var record models.InsightsCacheRecord
	if err := c.BodyParser(&record); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid insights payload"})
	}
	if err := h.store.SaveInsightsCache(c.Context(), record); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to cache insights"})
	}
	return c.JSON(fiber.Map{"saved": true})
}
