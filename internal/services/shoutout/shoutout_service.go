package shoutout

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/rajivgeraev/swapify-api/internal/db"
	"github.com/rajivgeraev/swapify-api/internal/events"
	"github.com/rajivgeraev/swapify-api/internal/middleware"
	"github.com/rajivgeraev/swapify-api/internal/models"
	"github.com/rajivgeraev/swapify-api/internal/validation"
)

const (
	defaultLatest = 8
	maxLatest     = 20
)

// Store is the storage the shoutout flow needs
type Store interface {
	GetSwap(ctx context.Context, id uuid.UUID) (*models.Swap, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.UserProfile, error)
	ListSwapsForUser(ctx context.Context, userID uuid.UUID, f models.SwapFilter) ([]models.Swap, error)
	CreateShoutout(ctx context.Context, sh *models.Shoutout) error
	ListShoutouts(ctx context.Context, f db.ShoutoutFilter) ([]models.Shoutout, error)
	ListShoutoutsByUser(ctx context.Context, userID uuid.UUID) ([]models.Shoutout, error)
}

// ShoutoutService handles reviews of swapped products
type ShoutoutService struct {
	store Store
	bus   events.Publisher
	log   *zap.Logger
}

// NewShoutoutService creates a ShoutoutService
func NewShoutoutService(store Store, bus events.Publisher, log *zap.Logger) *ShoutoutService {
	return &ShoutoutService{store: store, bus: bus, log: log.Named("shoutout")}
}

// CreateRequest is the body of a new shoutout
type CreateRequest struct {
	SwapID  string `json:"swap_id" validate:"required,uuid" msg:"Invalid swap ID"`
	Rating  int    `json:"rating" validate:"min=1,max=5" msg:"Rating must be between 1 and 5"`
	Content string `json:"content" validate:"notblank,max=2000" msg:"notblank=Please write a few words about the product|max=Shoutout is too long"`
}

// Create posts a shoutout for an accepted swap and awards one swap credit
func (s *ShoutoutService) Create(c fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req CreateRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validation.Message(err)})
	}

	swapID, err := uuid.Parse(req.SwapID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid swap ID"})
	}

	log := s.log.With(zap.String("user_id", userID.String()), zap.String("swap_id", swapID.String()))

	ctx, cancel := db.GetContext()
	defer cancel()

	swap, err := s.store.GetSwap(ctx, swapID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Swap not found"})
		}
		log.Error("get swap failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load swap"})
	}

	if swap.SenderID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You can only review products you received"})
	}
	if swap.Status != models.SwapAccepted {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "You can only review a product after the swap is accepted"})
	}

	shoutout := &models.Shoutout{
		UserID:    userID,
		ProductID: swap.ProductID,
		SwapID:    swap.ID,
		Content:   strings.TrimSpace(req.Content),
		Rating:    req.Rating,
	}
	if err := s.store.CreateShoutout(ctx, shoutout); err != nil {
		if errors.Is(err, db.ErrConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "You already posted a shoutout for this product"})
		}
		log.Error("create shoutout failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to post shoutout"})
	}

	// the shoutout and its credit are committed by now
	authorName := "A user"
	author, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		log.Warn("load author failed", zap.Error(err))
		author = nil
	} else {
		authorName = author.DisplayName()
	}

	productName := ""
	if swap.Product != nil {
		productName = swap.Product.Name
	}

	log.Info("shoutout created", zap.String("shoutout_id", shoutout.ID.String()), zap.Int("rating", shoutout.Rating))
	s.bus.Publish(events.TopicShoutoutCreated, events.ShoutoutCreated{
		Shoutout:    *shoutout,
		ProductName: productName,
		OwnerID:     swap.ReceiverID,
		AuthorName:  authorName,
	})

	shoutout.Product = swap.Product
	resp := fiber.Map{
		"success":  true,
		"shoutout": shoutout,
		"message":  "Thanks for your shoutout! You earned 1 swap credit",
	}
	if author != nil {
		shoutout.Author = author.Public()
		resp["swap_credits"] = author.SwapCredits
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// List returns all shoutouts filtered by search term and rating
func (s *ShoutoutService) List(c fiber.Ctx) error {
	filter := db.ShoutoutFilter{Query: strings.TrimSpace(c.Query("q"))}

	if raw := c.Query("rating", "all"); raw != "all" {
		rating, err := cast.ToIntE(raw)
		if err != nil || rating < models.MinRating || rating > models.MaxRating {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Rating must be all or 1 to 5"})
		}
		filter.Rating = rating
	}

	return s.respondList(c, filter)
}

// Latest returns the newest shoutouts for the public landing page
func (s *ShoutoutService) Latest(c fiber.Ctx) error {
	limit := defaultLatest
	if raw := c.Query("limit"); raw != "" {
		n, err := cast.ToIntE(raw)
		if err != nil || n < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid limit"})
		}
		limit = min(n, maxLatest)
	}

	return s.respondList(c, db.ShoutoutFilter{Limit: limit})
}

// Mine returns the shoutouts the caller has written
func (s *ShoutoutService) Mine(c fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	shoutouts, err := s.store.ListShoutoutsByUser(ctx, userID)
	if err != nil {
		s.log.Error("list user shoutouts failed", zap.String("user_id", userID.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load shoutouts"})
	}

	return c.JSON(fiber.Map{"shoutouts": shoutouts, "count": len(shoutouts)})
}

// Eligible returns the caller's accepted outgoing swaps whose product has no shoutout yet
func (s *ShoutoutService) Eligible(c fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	log := s.log.With(zap.String("user_id", userID.String()))

	ctx, cancel := db.GetContext()
	defer cancel()

	swaps, err := s.store.ListSwapsForUser(ctx, userID, models.SwapFilter{
		Direction: models.SwapDirectionOutgoing,
		Status:    models.SwapAccepted,
	})
	if err != nil {
		log.Error("list accepted swaps failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load swaps"})
	}

	written, err := s.store.ListShoutoutsByUser(ctx, userID)
	if err != nil {
		log.Error("list user shoutouts failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load shoutouts"})
	}

	eligible := EligibleSwaps(swaps, written)
	return c.JSON(fiber.Map{"swaps": eligible, "count": len(eligible)})
}

// EligibleSwaps drops swaps whose product was already reviewed, keeping one swap per product
func EligibleSwaps(swaps []models.Swap, written []models.Shoutout) []models.Swap {
	seen := make(map[uuid.UUID]bool, len(written))
	for _, sh := range written {
		seen[sh.ProductID] = true
	}

	eligible := []models.Swap{}
	for _, sw := range swaps {
		if seen[sw.ProductID] {
			continue
		}
		seen[sw.ProductID] = true
		eligible = append(eligible, sw)
	}
	return eligible
}

func (s *ShoutoutService) respondList(c fiber.Ctx, filter db.ShoutoutFilter) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	shoutouts, err := s.store.ListShoutouts(ctx, filter)
	if err != nil {
		s.log.Error("list shoutouts failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load shoutouts"})
	}

	return c.JSON(fiber.Map{"shoutouts": shoutouts, "count": len(shoutouts)})
}
