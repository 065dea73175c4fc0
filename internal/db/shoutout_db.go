package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/swapify-api/internal/models"
)

const shoutoutSelect = `
	SELECT sh.id, sh.user_id, sh.product_id, sh.swap_id, sh.content, sh.rating, sh.created_at, sh.updated_at,
	       p.name, p.image_url, p.user_id,
	       a.first_name, a.last_name, a.avatar_url
	FROM shoutouts sh
	JOIN products p ON p.id = sh.product_id
	JOIN user_profile a ON a.id = sh.user_id
`

// ShoutoutFilter narrows the public shoutout list. Rating 0 means any rating.
type ShoutoutFilter struct {
	Query  string
	Rating int
	Limit  int
}

// CreateShoutout inserts a shoutout and awards the author one swap credit in one transaction.
// A second shoutout by the same author for the same product returns ErrConflict.
func (s *Store) CreateShoutout(ctx context.Context, sh *models.Shoutout) error {
	if sh.ID == uuid.Nil {
		sh.ID = uuid.New()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO shoutouts (id, user_id, product_id, swap_id, content, rating)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, sh.ID, sh.UserID, sh.ProductID, sh.SwapID, sh.Content, sh.Rating).Scan(&sh.CreatedAt, &sh.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert shoutout: %w", err)
	}

	// single atomic increment, never read-modify-write
	if _, err = tx.Exec(ctx, `
		UPDATE user_profile SET swap_credits = swap_credits + 1, updated_at = NOW() WHERE id = $1
	`, sh.UserID); err != nil {
		return fmt.Errorf("award swap credit: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListShoutouts returns shoutouts newest first. Query matches the content or the product name.
func (s *Store) ListShoutouts(ctx context.Context, f ShoutoutFilter) ([]models.Shoutout, error) {
	var where []string
	var args []any

	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		where = append(where, fmt.Sprintf("(sh.content ILIKE $%d OR p.name ILIKE $%d)", len(args), len(args)))
	}
	if f.Rating > 0 {
		args = append(args, f.Rating)
		where = append(where, fmt.Sprintf("sh.rating = $%d", len(args)))
	}

	query := shoutoutSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY sh.created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return s.queryShoutouts(ctx, query, args...)
}

// ListShoutoutsByUser returns the shoutouts written by a user, newest first
func (s *Store) ListShoutoutsByUser(ctx context.Context, userID uuid.UUID) ([]models.Shoutout, error) {
	return s.queryShoutouts(ctx, shoutoutSelect+` WHERE sh.user_id = $1 ORDER BY sh.created_at DESC`, userID)
}

// ListShoutoutsCreatedIn returns shoutouts created in [from, to)
func (s *Store) ListShoutoutsCreatedIn(ctx context.Context, from, to time.Time) ([]models.Shoutout, error) {
	return s.queryShoutouts(ctx, shoutoutSelect+`
		WHERE sh.created_at >= $1 AND sh.created_at < $2 ORDER BY sh.created_at DESC`, from, to)
}

func (s *Store) queryShoutouts(ctx context.Context, query string, args ...any) ([]models.Shoutout, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query shoutouts: %w", err)
	}
	defer rows.Close()

	list := []models.Shoutout{}
	for rows.Next() {
		sh, err := scanShoutout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shoutout: %w", err)
		}
		list = append(list, *sh)
	}
	return list, rows.Err()
}

func scanShoutout(row pgx.Row) (*models.Shoutout, error) {
	var sh models.Shoutout
	p := &models.Product{}
	a := &models.User{}
	err := row.Scan(&sh.ID, &sh.UserID, &sh.ProductID, &sh.SwapID, &sh.Content, &sh.Rating, &sh.CreatedAt, &sh.UpdatedAt,
		&p.Name, &p.ImageURL, &p.UserID,
		&a.FirstName, &a.LastName, &a.AvatarURL)
	if err != nil {
		return nil, err
	}
	p.ID = sh.ProductID
	a.ID = sh.UserID
	sh.Product = p
	sh.Author = a
	return &sh, nil
}
