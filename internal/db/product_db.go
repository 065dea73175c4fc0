package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/swapify-api/internal/models"
)

const productColumns = `
	p.id, p.user_id, p.name, p.description, p.tags, p.redemption_type, p.status,
	p.product_link, p.image_url, p.created_at, p.updated_at,
	o.first_name, o.last_name, o.avatar_url
`

const productFrom = `FROM products p JOIN user_profile o ON o.id = p.user_id`

// CreateProduct inserts a product with status pending
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Status = models.ProductPending

	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (id, user_id, name, description, tags, redemption_type, status, product_link, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, p.ID, p.UserID, p.Name, p.Description, p.Tags, string(p.RedemptionType), string(p.Status),
		p.ProductLink, p.ImageURL).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("insert product: invalid redemption type: %w", err)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetProduct returns a product with its owner
func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` `+productFrom+` WHERE p.id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// ListProductsByUser returns the products of a user, newest first
func (s *Store) ListProductsByUser(ctx context.Context, userID uuid.UUID) ([]models.Product, error) {
	return s.queryProducts(ctx, `SELECT `+productColumns+` `+productFrom+`
		WHERE p.user_id = $1 ORDER BY p.created_at DESC`, userID)
}

// ListProductsByStatus returns products in the given status, newest first. A limit of 0 means no limit.
func (s *Store) ListProductsByStatus(ctx context.Context, status models.ProductStatus, limit int) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` ` + productFrom + ` WHERE p.status = $1 ORDER BY p.created_at DESC`
	if limit > 0 {
		return s.queryProducts(ctx, query+` LIMIT $2`, string(status), limit)
	}
	return s.queryProducts(ctx, query, string(status))
}

// ListProducts returns every product, newest first
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.queryProducts(ctx, `SELECT `+productColumns+` `+productFrom+` ORDER BY p.created_at DESC`)
}

// ListProductsCreatedIn returns products created in [from, to)
func (s *Store) ListProductsCreatedIn(ctx context.Context, from, to time.Time) ([]models.Product, error) {
	return s.queryProducts(ctx, `SELECT `+productColumns+` `+productFrom+`
		WHERE p.created_at >= $1 AND p.created_at < $2 ORDER BY p.created_at DESC`, from, to)
}

// UpdateProductStatus moves a product from one status to another.
// It returns ErrNotFound for an unknown id and ErrStaleStatus when the product is no longer in from.
func (s *Store) UpdateProductStatus(ctx context.Context, id uuid.UUID, from, to models.ProductStatus) (*models.Product, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE products SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2
	`, id, string(from), string(to))
	if err != nil {
		return nil, fmt.Errorf("update product status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check product: %w", err)
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrStaleStatus
	}

	return s.GetProduct(ctx, id)
}

func (s *Store) queryProducts(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	var redemption, status string
	owner := &models.User{}
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Tags, &redemption, &status,
		&p.ProductLink, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt,
		&owner.FirstName, &owner.LastName, &owner.AvatarURL)
	if err != nil {
		return nil, err
	}
	p.RedemptionType = models.RedemptionType(redemption)
	p.Status = models.ProductStatus(status)
	owner.ID = p.UserID
	p.Owner = owner
	return &p, nil
}
