package shoutout

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes registers the shoutout routes. Latest is public.
func (s *ShoutoutService) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	app.Get("/api/shoutouts/latest", s.Latest)

	api := app.Group("/api/shoutouts", authMiddleware)

	api.Get("/", s.List)
	api.Get("/my", s.Mine)
	api.Get("/eligible", s.Eligible)
	api.Post("/", s.Create)
}
