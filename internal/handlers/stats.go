package handlers

import (
	"github.com/gofiber/fiber/v2"

	"nuuko/internal/store"
)

// StatsHandler handles derived stats requests
type StatsHandler struct {
	store *store.Store
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(s *store.Store) *StatsHandler {
	return &StatsHandler{store: s}
}

// Get returns the current stats
func (h *StatsHandler) Get(c *fiber.Ctx) error {
	return c.JSON(h.store.Stats())
}

// Recalculate recomputes stats from the entry set
func (h *StatsHandler) Recalculate(c *fiber.Ctx) error {
	stats, err := h.store.RecalculateStats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to recalculate stats"})
	}
	return c.JSON(stats)
}
