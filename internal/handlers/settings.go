package handlers

import (
	"github.com/gofiber/fiber/v2"

	"nuuko/internal/models"
	"nuuko/internal/store"
)

// SettingsHandler handles settings requests
type SettingsHandler struct {
	store *store.Store
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(s *store.Store) *SettingsHandler {
	return &SettingsHandler{store: s}
}

// Get returns the current settings
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	return c.JSON(h.store.Settings())
}

// Patch applies a partial settings update
func (h *SettingsHandler) Patch(c *fiber.Ctx) error {
	var patch models.SettingsPatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid settings payload"})
	}
	updated, err := h.store.UpdateSettings(c.Context(), patch)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update settings"})
	}
	return c.JSON(updated)
}
