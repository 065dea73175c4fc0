package auth

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes registers the auth routes
func (s *AuthService) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	api := app.Group("/api/auth")

	api.Post("/signup", s.Signup)
	api.Post("/login", s.Login)
	api.Post("/forgot-password", s.ForgotPassword)
	api.Post("/reset-password", s.ResetPassword)

	app.Get("/api/profile", authMiddleware, s.Profile)
}
