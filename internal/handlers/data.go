package handlers

import (
	"github.com/gofiber/fiber/v2"

	"nuuko/internal/models"
	"nuuko/internal/store"
)

// DataHandler handles export, import and full wipe
type DataHandler struct {
	store *store.Store
}

// NewDataHandler creates a new data handler
func NewDataHandler(s *store.Store) *DataHandler {
	return &DataHandler{store: s}
}

// Export returns a portable backup of everything
func (h *DataHandler) Export(c *fiber.Ctx) error {
	return c.JSON(h.store.ExportData())
}

// Import restores a backup
func (h *DataHandler) Import(c *fiber.Ctx) error {
	var payload models.ExportPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid import payload"})
	}
	if err := h.store.ImportData(c.Context(), payload); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "import failed"})
	}
	return c.JSON(fiber.Map{
		"imported": true,
		"entries":  len(h.store.Entries()),
	})
}

// Clear wipes all data and resets defaults
func (h *DataHandler) Clear(c *fiber.Ctx) error {
	if err := h.store.ClearAllData(c.Context()); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to clear data"})
	}
	return c.JSON(fiber.Map{"cleared": true})
}
