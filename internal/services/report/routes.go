package report

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/swapify-api/internal/middleware"
	"github.com/rajivgeraev/swapify-api/internal/models"
)

// SetupRoutes registers the admin report routes
func (s *ReportService) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	api := app.Group("/api/admin/reports", authMiddleware, middleware.RequireRole(models.RoleAdmin))

	api.Get("/", s.Get)
	api.Get("/export", s.Export)
}
