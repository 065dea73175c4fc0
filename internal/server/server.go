package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"go.uber.org/zap"

	"github.com/rajivgeraev/swapify-api/internal/config"
	"github.com/rajivgeraev/swapify-api/internal/validation"
)

// Service is a component that registers its routes on the app
type Service interface {
	SetupRoutes(app *fiber.App, authMiddleware fiber.Handler)
}

// Pinger reports whether the storage is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// New creates the fiber app with the common middleware, the health check and the routes of every service
func New(cfg *config.Config, log *zap.Logger, pinger Pinger, authMiddleware fiber.Handler, services ...Service) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:         "Swapify API",
		ErrorHandler:    errorHandler(log),
		StructValidator: validation.New(),
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	app.Get("/healthz", func(c fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := pinger.Ping(ctx); err != nil {
			log.Warn("health check failed", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	for _, s := range services {
		s.SetupRoutes(app, authMiddleware)
	}

	return app
}

// errorHandler turns returned errors into JSON. Unknown errors become a generic 500.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			log.Error("unhandled request error",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
		}

		return c.Status(code).JSON(fiber.Map{
			"error": message,
		})
	}
}
