package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"nuuko/internal/feedback"
	"nuuko/internal/prompts"
	"nuuko/internal/store"
	"nuuko/internal/summary"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Store    *store.Store
	Summary  *summary.Service
	Prompts  *prompts.Engine
	Feedback *feedback.Client
	Hub      *Hub
}

// Register mounts all routes on the app.
func Register(app *fiber.App, deps Deps) {
	entryHandler := NewEntryHandler(deps.Store)
	settingsHandler := NewSettingsHandler(deps.Store)
	statsHandler := NewStatsHandler(deps.Store)
	summaryHandler := NewSummaryHandler(deps.Store, deps.Summary)
	insightsHandler := NewInsightsHandler(deps.Store)
	dataHandler := NewDataHandler(deps.Store)
	promptHandler := NewPromptHandler(deps.Prompts, deps.Store)
	feedbackHandler := NewFeedbackHandler(deps.Feedback)
	healthHandler := NewHealthHandler(deps.Store, deps.Summary, deps.Hub)

	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api/v1")

	api.Get("/entries", entryHandler.List)
	api.Post("/entries", entryHandler.Save)
	api.Put("/entries", entryHandler.Replace)
	api.Get("/entries/:id", entryHandler.Get)
	api.Put("/entries/:id", entryHandler.Save)
	api.Delete("/entries/:id", entryHandler.Delete)

	api.Get("/settings", settingsHandler.Get)
	api.Patch("/settings", settingsHandler.Patch)

	api.Get("/stats", statsHandler.Get)
	api.Post("/stats/recalculate", statsHandler.Recalculate)

	api.Get("/summaries", summaryHandler.List)
	api.Post("/summaries/generate", summaryHandler.Generate)
	api.Delete("/summaries/:id", summaryHandler.Delete)
	api.Get("/summaries/telemetry", summaryHandler.Telemetry)
	api.Post("/summaries/queue/flush", summaryHandler.FlushQueue)

	api.Get("/insights/wrapped", insightsHandler.Wrapped)
	api.Get("/insights/snapshot", insightsHandler.Snapshot)
	api.Get("/insights/cache", insightsHandler.GetCache)
	api.Put("/insights/cache", insightsHandler.PutCache)

	api.Get("/data/export", dataHandler.Export)
	api.Post("/data/import", dataHandler.Import)
	api.Delete("/data", dataHandler.Clear)

	api.Get("/prompt", promptHandler.Current)
	api.Post("/prompt/refresh", promptHandler.Refresh)

	api.Post("/feedback", feedbackHandler.Submit)

	// WebSocket route for live change events
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(deps.Hub.Handle))
}
