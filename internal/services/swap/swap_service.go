package swap

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rajivgeraev/swapify-api/internal/db"
	"github.com/rajivgeraev/swapify-api/internal/events"
	"github.com/rajivgeraev/swapify-api/internal/middleware"
	"github.com/rajivgeraev/swapify-api/internal/models"
)

const maxMessageLength = 1000

// Store is the storage the swap workflow needs
type Store interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.UserProfile, error)
	CreateSwap(ctx context.Context, sw *models.Swap) error
	GetSwap(ctx context.Context, id uuid.UUID) (*models.Swap, error)
	ListSwapsForUser(ctx context.Context, userID uuid.UUID, f models.SwapFilter) ([]models.Swap, error)
	ListSwapHistory(ctx context.Context, userID uuid.UUID, q string) ([]models.Swap, error)
	UpdateSwapStatus(ctx context.Context, id uuid.UUID, to models.SwapStatus) (*models.Swap, error)
}

// SwapService handles swap requests between users
type SwapService struct {
	store Store
	bus   events.Publisher
	log   *zap.Logger
}

// NewSwapService creates a SwapService
func NewSwapService(store Store, bus events.Publisher, log *zap.Logger) *SwapService {
	return &SwapService{store: store, bus: bus, log: log.Named("swap")}
}

// Create requests a swap for another user's approved product
func (s *SwapService) Create(c fiber.Ctx) error {
	senderID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req struct {
		ProductID        string `json:"product_id"`
		OfferedProductID string `json:"offered_product_id"`
		Message          string `json:"message"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	message := strings.TrimSpace(req.Message)
	if len(message) > maxMessageLength {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Message is too long"})
	}

	log := s.log.With(zap.String("user_id", senderID.String()), zap.String("product_id", productID.String()))

	ctx, cancel := db.GetContext()
	defer cancel()

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
		}
		log.Error("get product failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load product"})
	}

	if product.Status != models.ProductApproved {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "This product is not available for swapping"})
	}

	// Swapping with yourself is not allowed
	if product.UserID == senderID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "You cannot request a swap for your own product"})
	}

	swap := &models.Swap{
		SenderID:   senderID,
		ReceiverID: product.UserID,
		ProductID:  product.ID,
		Message:    message,
	}

	if req.OfferedProductID != "" {
		offeredID, err := uuid.Parse(req.OfferedProductID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid offered product ID"})
		}
		offered, err := s.store.GetProduct(ctx, offeredID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			log.Error("get offered product failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load product"})
		}
		if err != nil || offered.UserID != senderID || offered.Status != models.ProductApproved {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "You can only offer one of your own approved products"})
		}
		swap.OfferedProductID = &offered.ID
	}

	if err := s.store.CreateSwap(ctx, swap); err != nil {
		switch {
		case errors.Is(err, db.ErrNoSwapCredits):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You have no swap credits left. Post a shoutout to earn one"})
		case errors.Is(err, db.ErrConflict):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "You already have a pending request for this product"})
		}
		log.Error("create swap failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create swap request"})
	}

	log.Info("swap requested", zap.String("swap_id", swap.ID.String()))
	s.bus.Publish(events.TopicSwapRequested, events.SwapRequested{
		Swap:        *swap,
		ProductName: product.Name,
		SenderName:  s.displayName(ctx, senderID),
	})

	swap.Product = product
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"swap":    swap,
		"message": "Swap request sent",
	})
}

// List returns the caller's swaps filtered by direction and status
func (s *SwapService) List(c fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	filter, ok := parseFilter(c.Query("type", "all"), c.Query("status", "all"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid type or status parameter"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	swaps, err := s.store.ListSwapsForUser(ctx, userID, filter)
	if err != nil {
		s.log.Error("list swaps failed", zap.String("user_id", userID.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load swaps"})
	}

	return c.JSON(fiber.Map{"swaps": swaps, "count": len(swaps)})
}

// UpdateStatus lets the receiver accept or reject a pending swap
func (s *SwapService) UpdateStatus(c fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	swapID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid swap ID"})
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	next := models.SwapStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !models.SwapPending.CanTransitionTo(next) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Status must be accepted or rejected"})
	}

	log := s.log.With(zap.String("user_id", userID.String()), zap.String("swap_id", swapID.String()))

	ctx, cancel := db.GetContext()
	defer cancel()

	current, err := s.store.GetSwap(ctx, swapID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Swap not found"})
		}
		log.Error("get swap failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load swap"})
	}

	// Only the receiver may answer
	if current.ReceiverID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only the product owner can respond to this swap"})
	}

	updated, err := s.store.UpdateSwapStatus(ctx, swapID, next)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Swap not found"})
		case errors.Is(err, db.ErrStaleStatus):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "This swap was already resolved"})
		}
		log.Error("update swap status failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update swap"})
	}

	productName := ""
	if updated.Product != nil {
		productName = updated.Product.Name
	}

	log.Info("swap resolved", zap.String("status", string(next)))
	s.bus.Publish(events.TopicSwapResolved, events.SwapResolved{
		Swap:         *updated,
		ProductName:  productName,
		ReceiverName: s.displayName(ctx, userID),
	})

	return c.JSON(fiber.Map{"success": true, "swap": updated})
}

// History returns the caller's accepted swaps, optionally searched by product name or id
func (s *SwapService) History(c fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	swaps, err := s.store.ListSwapHistory(ctx, userID, c.Query("q"))
	if err != nil {
		s.log.Error("list swap history failed", zap.String("user_id", userID.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load swap history"})
	}

	return c.JSON(fiber.Map{"swaps": swaps, "count": len(swaps)})
}

func (s *SwapService) displayName(ctx context.Context, id uuid.UUID) string {
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		s.log.Warn("load user failed", zap.String("user_id", id.String()), zap.Error(err))
		return "A user"
	}
	return u.DisplayName()
}

func parseFilter(direction, status string) (models.SwapFilter, bool) {
	f := models.SwapFilter{Direction: models.SwapDirection(strings.ToLower(direction))}
	switch f.Direction {
	case models.SwapDirectionAll, models.SwapDirectionIncoming, models.SwapDirectionOutgoing:
	default:
		return f, false
	}

	switch st := models.SwapStatus(strings.ToLower(status)); st {
	case "all":
	case models.SwapPending, models.SwapAccepted, models.SwapRejected:
		f.Status = st
	default:
		return f, false
	}
	return f, true
}
