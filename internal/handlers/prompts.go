package handlers

import (
	"github.com/gofiber/fiber/v2"

	"nuuko/internal/models"
	"nuuko/internal/prompts"
	"nuuko/internal/store"
)

// PromptHandler serves the rotating journaling prompt
type PromptHandler struct {
	engine *prompts.Engine
	store  *store.Store
}

// NewPromptHandler creates a new prompt handler
func NewPromptHandler(engine *prompts.Engine, s *store.Store) *PromptHandler {
	return &PromptHandler{engine: engine, store: s}
}

// Current returns the prompt pair for right now and records it in settings
func (h *PromptHandler) Current(c *fiber.Ctx) error {
	sel, err := h.engine.Current()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	h.persistPrompt(c, sel.PrimaryPrompt)
	return c.JSON(sel)
}

// Refresh re-rolls the prompt within the current bucket
func (h *PromptHandler) Refresh(c *fiber.Ctx) error {
	sel, err := h.engine.Refresh()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	h.persistPrompt(c, sel.PrimaryPrompt)
	return c.JSON(sel)
}

// persistPrompt records the served prompt in settings, best effort.
func (h *PromptHandler) persistPrompt(c *fiber.Ctx, prompt string) {
	if prompt == "" {
		return
	}
	_, _ = h.store.UpdateSettings(c.Context(), models.SettingsPatch{CurrentPrompt: &prompt})
}
