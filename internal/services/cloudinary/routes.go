package cloudinary

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes registers the upload routes
func (s *CloudinaryService) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	app.Get("/api/upload/params", authMiddleware, s.GenerateUploadParams)
}
