package notification

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes registers the notification routes
func (s *NotificationService) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	api := app.Group("/api/notifications", authMiddleware)

	api.Get("/", s.List)
	api.Get("/unread-count", s.UnreadCount)
	api.Get("/wait", s.Wait)
	api.Get("/preferences", s.GetPreferences)
	api.Put("/preferences", s.UpdatePreferences)
	api.Put("/read-all", s.MarkAllRead)
	api.Put("/:id/read", s.MarkRead)
}
