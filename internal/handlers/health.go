package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"nuuko/internal/store"
	"nuuko/internal/summary"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	store   *store.Store
	service *summary.Service
	hub     *Hub
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(s *store.Store, service *summary.Service, hub *Hub) *HealthHandler {
	return &HealthHandler{store: s, service: service, hub: hub}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "healthy",
		"backend":     h.store.BackendName(),
		"queued":      h.service.QueueLength(),
		"connections": h.hub.Count(),
		"timestamp":   time.Now().Format(time.RFC3339),
	})
}
