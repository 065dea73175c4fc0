package cloudinary

import (
	"net/url"
	"strconv"
	"time"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rajivgeraev/swapify-api/internal/config"
)

// CloudinaryService signs direct browser uploads of product images
type CloudinaryService struct {
	cfg *config.CloudinaryConfig
	log *zap.Logger
	now func() time.Time
}

// NewCloudinaryService creates a CloudinaryService
func NewCloudinaryService(cfg *config.Config, log *zap.Logger) *CloudinaryService {
	return &CloudinaryService{cfg: &cfg.CloudinaryConfig, log: log.Named("cloudinary"), now: time.Now}
}

// UploadParams are the signed fields the browser posts to Cloudinary
type UploadParams struct {
	Timestamp    string `json:"timestamp"`
	Signature    string `json:"signature"`
	APIKey       string `json:"api_key"`
	CloudName    string `json:"cloud_name"`
	Folder       string `json:"folder"`
	PublicID     string `json:"public_id"`
	UploadPreset string `json:"upload_preset,omitempty"`
	UploadURL    string `json:"upload_url"`
}

// Sign builds the signed parameters for one upload
func (s *CloudinaryService) Sign(publicID string) (*UploadParams, error) {
	params := UploadParams{
		Timestamp:    strconv.FormatInt(s.now().Unix(), 10),
		APIKey:       s.cfg.APIKey,
		CloudName:    s.cfg.CloudName,
		Folder:       s.cfg.UploadFolder,
		PublicID:     publicID,
		UploadPreset: s.cfg.UploadPreset,
		UploadURL:    "https://api.cloudinary.com/v1_1/" + s.cfg.CloudName + "/image/upload",
	}

	// every field sent to Cloudinary except file, api_key and cloud_name is signed
	values := url.Values{}
	values.Set("timestamp", params.Timestamp)
	values.Set("folder", params.Folder)
	values.Set("public_id", params.PublicID)
	if params.UploadPreset != "" {
		values.Set("upload_preset", params.UploadPreset)
	}

	signature, err := api.SignParameters(values, s.cfg.APISecret)
	if err != nil {
		return nil, err
	}
	params.Signature = signature
	return &params, nil
}

// GenerateUploadParams returns signed upload parameters for a product image
func (s *CloudinaryService) GenerateUploadParams(c fiber.Ctx) error {
	if s.cfg.CloudName == "" || s.cfg.APISecret == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Image uploads are not configured"})
	}

	publicID := c.Query("product_id")
	if publicID == "" {
		publicID = uuid.New().String()
	} else if _, err := uuid.Parse(publicID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	params, err := s.Sign(publicID)
	if err != nil {
		s.log.Error("sign upload failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to sign upload"})
	}

	return c.JSON(params)
}
