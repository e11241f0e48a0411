package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"nuuko/internal/feedback"
)

// FeedbackHandler relays feedback to the external collector
type FeedbackHandler struct {
	client *feedback.Client
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(client *feedback.Client) *FeedbackHandler {
	return &FeedbackHandler{client: client}
}

// Submit relays one feedback submission
func (h *FeedbackHandler) Submit(c *fiber.Ctx) error {
	var sub feedback.Submission
	if err := c.BodyParser(&sub); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid feedback payload"})
	}
	if sub.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "message is required"})
	}

	if err := h.client.Submit(c.Context(), sub, c.Get(fiber.HeaderUserAgent)); err != nil {
		if errors.Is(err, feedback.ErrNotConfigured) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "feedback is not configured"})
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "could not send feedback right now"})
	}
	return c.JSON(fiber.Map{"sent": true})
}
