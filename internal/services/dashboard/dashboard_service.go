package dashboard

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rajivgeraev/swapify-api/internal/db"
	"github.com/rajivgeraev/swapify-api/internal/middleware"
	"github.com/rajivgeraev/swapify-api/internal/models"
)

// Store is the storage the dashboards read
type Store interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.UserProfile, error)
	CountUsers(ctx context.Context) (int, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	ListProductsByUser(ctx context.Context, userID uuid.UUID) ([]models.Product, error)
	ListSwaps(ctx context.Context) ([]models.Swap, error)
	ListSwapsForUser(ctx context.Context, userID uuid.UUID, f models.SwapFilter) ([]models.Swap, error)
	ListShoutouts(ctx context.Context, f db.ShoutoutFilter) ([]models.Shoutout, error)
	ListShoutoutsByUser(ctx context.Context, userID uuid.UUID) ([]models.Shoutout, error)
}

// DashboardService serves the user and admin dashboards
type DashboardService struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

// NewDashboardService creates a DashboardService
func NewDashboardService(store Store, log *zap.Logger) *DashboardService {
	return &DashboardService{store: store, log: log.Named("dashboard"), now: time.Now}
}

// User returns the caller's dashboard
func (s *DashboardService) User(c fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var (
		profile   *models.UserProfile
		products  []models.Product
		swaps     []models.Swap
		shoutouts []models.Shoutout
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		profile, err = s.store.GetUserByID(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		products, err = s.store.ListProductsByUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		swaps, err = s.store.ListSwapsForUser(gctx, userID, models.SwapFilter{Direction: models.SwapDirectionAll})
		return err
	})
	g.Go(func() (err error) {
		shoutouts, err = s.store.ListShoutoutsByUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("load user dashboard failed", zap.String("user_id", userID.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load dashboard"})
	}

	return c.JSON(BuildUserDashboard(userID, profile.SwapCredits, products, swaps, shoutouts))
}

// Admin returns the platform dashboard
func (s *DashboardService) Admin(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	var (
		users     int
		products  []models.Product
		swaps     []models.Swap
		shoutouts []models.Shoutout
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = s.store.CountUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		products, err = s.store.ListProducts(gctx)
		return err
	})
	g.Go(func() (err error) {
		swaps, err = s.store.ListSwaps(gctx)
		return err
	})
	g.Go(func() (err error) {
		shoutouts, err = s.store.ListShoutouts(gctx, db.ShoutoutFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("load admin dashboard failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load dashboard"})
	}

	return c.JSON(BuildAdminDashboard(users, products, swaps, shoutouts, s.now()))
}
