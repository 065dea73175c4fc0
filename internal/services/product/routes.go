package product

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes registers the product routes
func (s *ProductService) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	api := app.Group("/api/products", authMiddleware)

	api.Post("/", s.Submit)
	api.Get("/", s.Browse)
	api.Get("/my", s.Mine)
	api.Get("/:id", s.Get)
}
