package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"nuuko/internal/models"
	"nuuko/internal/store"
)

// EntryHandler handles journal entry requests
type EntryHandler struct {
	store *store.Store
}

// NewEntryHandler creates a new entry handler
func NewEntryHandler(s *store.Store) *EntryHandler {
	return &EntryHandler{store: s}
}

// List returns all entries, newest first
func (h *EntryHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"entries": h.store.Entries()})
}

// Get returns a single entry by id
func (h *EntryHandler) Get(c *fiber.Ctx) error {
	entry := h.store.GetEntryByID(c.Params("id"))
	if entry == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "entry not found"})
	}
	return c.JSON(entry)
}

// Save upserts an entry
func (h *EntryHandler) Save(c *fiber.Ctx) error {
	var entry models.Entry
	if err := c.BodyParser(&entry); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid entry payload"})
	}
	if id := c.Params("id"); id != "" {
		entry.ID = id
	}

	saved, err := h.store.SaveEntry(c.Context(), entry)
	if err != nil {
		if errors.Is(err, store.ErrEntryIDRequired) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save entry"})
	}
	return c.JSON(saved)
}

// Replace swaps the whole entry set
func (h *EntryHandler) Replace(c *fiber.Ctx) error {
	var body struct {
		Entries []models.Entry `json:"entries"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid entries payload"})
	}
	if err := h.store.ReplaceEntries(c.Context(), body.Entries); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to replace entries"})
	}
	return c.JSON(fiber.Map{"entries": h.store.Entries()})
}

// Delete removes an entry by id
func (h *EntryHandler) Delete(c *fiber.Ctx) error {
	if err := h.store.DeleteEntry(c.Context(), c.Params("id")); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete entry"})
	}
	return c.JSON(fiber.Map{"deleted": true})
}
