package moderation

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rajivgeraev/swapify-api/internal/db"
	"github.com/rajivgeraev/swapify-api/internal/events"
	"github.com/rajivgeraev/swapify-api/internal/middleware"
	"github.com/rajivgeraev/swapify-api/internal/models"
)

// Store is the storage the moderation queue needs
type Store interface {
	ListProductsByStatus(ctx context.Context, status models.ProductStatus, limit int) ([]models.Product, error)
	UpdateProductStatus(ctx context.Context, id uuid.UUID, from, to models.ProductStatus) (*models.Product, error)
}

// ModerationService is the admin review queue for submitted products
type ModerationService struct {
	store Store
	bus   events.Publisher
	log   *zap.Logger
}

// NewModerationService creates a ModerationService
func NewModerationService(store Store, bus events.Publisher, log *zap.Logger) *ModerationService {
	return &ModerationService{store: store, bus: bus, log: log.Named("moderation")}
}

// ListPending returns the products waiting for review, newest first
func (s *ModerationService) ListPending(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	products, err := s.store.ListProductsByStatus(ctx, models.ProductPending, 0)
	if err != nil {
		s.log.Error("list pending products failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load pending products"})
	}

	return c.JSON(fiber.Map{"products": products, "count": len(products)})
}

// Approve moves a pending product to approved
func (s *ModerationService) Approve(c fiber.Ctx) error {
	return s.review(c, models.ProductApproved)
}

// Reject moves a pending product to rejected
func (s *ModerationService) Reject(c fiber.Ctx) error {
	return s.review(c, models.ProductRejected)
}

func (s *ModerationService) review(c fiber.Ctx, to models.ProductStatus) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	adminID, _ := middleware.CurrentUserID(c)
	log := s.log.With(zap.String("product_id", id.String()), zap.String("admin_id", adminID.String()))

	ctx, cancel := db.GetContext()
	defer cancel()

	product, err := s.store.UpdateProductStatus(ctx, id, models.ProductPending, to)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
		case errors.Is(err, db.ErrStaleStatus):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Product was already reviewed"})
		}
		log.Error("update product status failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update product"})
	}

	log.Info("product reviewed", zap.String("status", string(to)))
	s.bus.Publish(events.TopicProductReviewed, events.ProductReviewed{Product: *product})

	return c.JSON(fiber.Map{"product": product})
}
