package product

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
	"github.com/rajivgeraev/swapify-api/internal/validation"
)

// Store is the storage the product service needs
type Store interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProductsByUser(ctx context.Context, userID uuid.UUID) ([]models.Product, error)
	ListProductsByStatus(ctx context.Context, status models.ProductStatus, limit int) ([]models.Product, error)
}

// ProductService handles product submission and the catalogue
type ProductService struct {
	store Store
	bus   events.Publisher
	log   *zap.Logger
}

// NewProductService creates a ProductService
func NewProductService(store Store, bus events.Publisher, log *zap.Logger) *ProductService {
	return &ProductService{store: store, bus: bus, log: log.Named("product")}
}

// SubmitRequest is the body of a product submission
type SubmitRequest struct {
	Name           string `json:"name" validate:"notblank" msg:"Product name is required"`
	Description    string `json:"description" validate:"notblank" msg:"Description is required"`
	Tags           string `json:"tags"`
	RedemptionType string `json:"redemption_type" validate:"required,oneof=manual stripe" msg:"required=Please select a redemption type|oneof=Redemption type must be manual or stripe"`
	ProductLink    string `json:"product_link" validate:"required,http_url" msg:"required=Product link is required|http_url=Product link must be a valid http(s) URL"`
	ImageURL       string `json:"image_url" validate:"omitempty,http_url" msg:"Image URL must be a valid http(s) URL"`
}

// Submit stores a new product for review
func (s *ProductService) Submit(c fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req SubmitRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validation.Message(err)})
	}

	product := &models.Product{
		UserID:         userID,
		Name:           strings.TrimSpace(req.Name),
		Description:    strings.TrimSpace(req.Description),
		Tags:           models.NormalizeTags(req.Tags),
		RedemptionType: models.RedemptionType(strings.TrimSpace(req.RedemptionType)),
		ProductLink:    strings.TrimSpace(req.ProductLink),
		ImageURL:       strings.TrimSpace(req.ImageURL),
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.store.CreateProduct(ctx, product); err != nil {
		s.log.Error("create product failed", zap.String("user_id", userID.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to submit product"})
	}

	s.bus.Publish(events.TopicProductSubmitted, events.ProductSubmitted{Product: *product})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"product": product,
		"message": "Product submitted for review",
	})
}

// Browse lists approved products with search, filter, sort and paging
func (s *ProductService) Browse(c fiber.Ctx) error {
	bq, ok := ParseBrowseQuery(c.Query("q"), c.Query("type"), c.Query("sort"), c.Query("page"), c.Query("per_page"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid type or sort parameter"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	products, err := s.store.ListProductsByStatus(ctx, models.ProductApproved, 0)
	if err != nil {
		s.log.Error("list products failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load products"})
	}

	return c.JSON(Paginate(FilterProducts(products, bq), bq.Page, bq.PerPage))
}

// Mine lists the caller's products with counts by status
func (s *ProductService) Mine(c fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	products, err := s.store.ListProductsByUser(ctx, userID)
	if err != nil {
		s.log.Error("list my products failed", zap.String("user_id", userID.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load products"})
	}

	return c.JSON(fiber.Map{
		"products": products,
		"stats":    models.CountProducts(products),
	})
}

// Get returns one product. Products that are not approved are visible to their owner and admins only.
func (s *ProductService) Get(c fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
		}
		s.log.Error("get product failed", zap.String("product_id", id.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load product"})
	}

	if product.Status != models.ProductApproved && product.UserID != userID && middleware.CurrentRole(c) != models.RoleAdmin {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
	}

	return c.JSON(fiber.Map{"product": product})
}
