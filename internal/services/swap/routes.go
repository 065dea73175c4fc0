package swap

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes registers the swap routes
func (s *SwapService) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	api := app.Group("/api/swaps", authMiddleware)

	api.Post("/", s.Create)
	api.Get("/", s.List)
	api.Get("/history", s.History)
	api.Put("/:id/status", s.UpdateStatus)
}
