package moderation

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/swapify-api/internal/middleware"
	"github.com/rajivgeraev/swapify-api/internal/models"
)

// SetupRoutes registers the admin moderation routes
func (s *ModerationService) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	admin := app.Group("/api/admin/products", authMiddleware, middleware.RequireRole(models.RoleAdmin))

	admin.Get("/pending", s.ListPending)
	admin.Post("/:id/approve", s.Approve)
	admin.Post("/:id/reject", s.Reject)
}
