package dashboard

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/swapify-api/internal/middleware"
	"github.com/rajivgeraev/swapify-api/internal/models"
)

// SetupRoutes registers the dashboard routes
func (s *DashboardService) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	app.Get("/api/dashboard", authMiddleware, s.User)
	app.Get("/api/admin/dashboard", authMiddleware, middleware.RequireRole(models.RoleAdmin), s.Admin)
}
