package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RedemptionType describes how a product reaches the swap recipient
type RedemptionType string

const (
	RedemptionManual RedemptionType = "manual"
	RedemptionStripe RedemptionType = "stripe"
)

// Valid reports whether the redemption type is one of the known values
func (r RedemptionType) Valid() bool {
	return r == RedemptionManual || r == RedemptionStripe
}

// ProductStatus is the moderation state of a product
type ProductStatus string

const (
	ProductPending  ProductStatus = "pending"
	ProductApproved ProductStatus = "approved"
	ProductRejected ProductStatus = "rejected"
)

// Product represents a product submitted for swapping
type Product struct {
	ID             uuid.UUID      `json:"id"`
	UserID         uuid.UUID      `json:"user_id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Tags           string         `json:"tags"`
	RedemptionType RedemptionType `json:"redemption_type"`
	Status         ProductStatus  `json:"status"`
	ProductLink    string         `json:"product_link"`
	ImageURL       string         `json:"image_url,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	// Extra fields for the API
	Owner *User `json:"owner,omitempty"`
}

// SplitTags splits a comma-joined tag string
func SplitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// NormalizeTags trims every tag and drops empty entries
func NormalizeTags(raw string) string {
	return strings.Join(SplitTags(raw), ",")
}

// ProductStats summarises a set of products by status
type ProductStats struct {
	Total    int `json:"total"`
	Approved int `json:"approved"`
	Pending  int `json:"pending"`
	Rejected int `json:"rejected"`
}

// CountProducts counts products by status
func CountProducts(products []Product) ProductStats {
	stats := ProductStats{Total: len(products)}
	for _, p := range products {
		switch p.Status {
		case ProductApproved:
			stats.Approved++
		case ProductPending:
			stats.Pending++
		case ProductRejected:
			stats.Rejected++
		}
	}
	return stats
}
