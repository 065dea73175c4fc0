package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rajivgeraev/swapify-api/internal/db"
	"github.com/rajivgeraev/swapify-api/internal/events"
	"github.com/rajivgeraev/swapify-api/internal/mailer"
	"github.com/rajivgeraev/swapify-api/internal/middleware"
	"github.com/rajivgeraev/swapify-api/internal/notify"
	"github.com/rajivgeraev/swapify-api/internal/scheduler"
	"github.com/rajivgeraev/swapify-api/internal/server"
	"github.com/rajivgeraev/swapify-api/internal/services/auth"
	"github.com/rajivgeraev/swapify-api/internal/services/cloudinary"
	"github.com/rajivgeraev/swapify-api/internal/services/dashboard"
	"github.com/rajivgeraev/swapify-api/internal/services/moderation"
	"github.com/rajivgeraev/swapify-api/internal/services/notification"
	"github.com/rajivgeraev/swapify-api/internal/services/product"
	"github.com/rajivgeraev/swapify-api/internal/services/report"
	"github.com/rajivgeraev/swapify-api/internal/services/shoutout"
	"github.com/rajivgeraev/swapify-api/internal/services/swap"
	"github.com/rajivgeraev/swapify-api/internal/utils"
)

const shutdownTimeout = 15 * time.Second

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(a)
		},
	}
}

func serve(a *app) error {
	cfg, log := a.cfg, a.log

	pool, err := db.Connect(cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()
	store := db.NewStore(pool)

	hub := notify.NewHub(log)
	bus := events.NewBus()
	if err := events.NewNotifier(store, hub, log.Named("notifier")).Register(bus); err != nil {
		return fmt.Errorf("register notifier: %w", err)
	}

	mail, err := mailer.New(cfg.SMTPConfig, log)
	if err != nil {
		return err
	}

	cron, err := scheduler.New(cfg, store, mail, log.Named("scheduler"))
	if err != nil {
		return err
	}

	jwtService := utils.NewJWTService(cfg.JWTSecret, cfg.JWTTTL)
	authMiddleware := middleware.AuthMiddleware(jwtService)

	app := server.New(cfg, log, store, authMiddleware,
		auth.NewAuthService(cfg, store, mail, jwtService, log),
		product.NewProductService(store, bus, log),
		cloudinary.NewCloudinaryService(cfg, log),
		moderation.NewModerationService(store, bus, log),
		swap.NewSwapService(store, bus, log),
		shoutout.NewShoutoutService(store, bus, log),
		notification.NewNotificationService(store, hub, log),
		dashboard.NewDashboardService(store, log),
		report.NewReportService(store, log),
	)

	cron.Start()

	listenErr := make(chan error, 1)
	go func() {
		log.Info("Swapify API started", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
		listenErr <- app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: !cfg.IsDevelopment()})
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-listenErr:
		if err != nil {
			runErr = fmt.Errorf("listen: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	shutdown(ctx, log, cron, hub, app, mail)

	return runErr
}

type (
	stopper       interface{ Stop() }
	hubShutdowner interface{ Shutdown() }
	serverDrainer interface{ ShutdownWithContext(ctx context.Context) error }
	mailCloser    interface{ Close() }
)

// shutdown stops the jobs, then releases long-poll waiters so the server can drain in time, then flushes mail
func shutdown(ctx context.Context, log *zap.Logger, cron stopper, hub hubShutdowner, srv serverDrainer, mail mailCloser) {
	cron.Stop()
	hub.Shutdown()

	if err := srv.ShutdownWithContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server shutdown failed", zap.Error(err))
	}

	mail.Close()
	log.Info("shutdown complete")
}
