package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/swapify-api/internal/models"
)

const swapSelect = `
	SELECT s.id, s.sender_id, s.receiver_id, s.product_id, s.offered_product_id, s.message,
	       s.status, s.created_at, s.updated_at,
	       ` + productColumns + `,
	       op.name, op.image_url,
	       su.first_name, su.last_name, su.avatar_url,
	       ru.first_name, ru.last_name, ru.avatar_url
	FROM swaps s
	JOIN products p ON p.id = s.product_id
	JOIN user_profile o ON o.id = p.user_id
	LEFT JOIN products op ON op.id = s.offered_product_id
	JOIN user_profile su ON su.id = s.sender_id
	JOIN user_profile ru ON ru.id = s.receiver_id
`

// CreateSwap consumes one swap credit of the sender and inserts a pending swap in one transaction.
// It returns ErrNoSwapCredits when the sender has no credits and ErrConflict when a pending
// request for the same product already exists.
func (s *Store) CreateSwap(ctx context.Context, sw *models.Swap) error {
	if sw.ID == uuid.Nil {
		sw.ID = uuid.New()
	}
	sw.Status = models.SwapPending

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE user_profile SET swap_credits = swap_credits - 1, updated_at = NOW()
		WHERE id = $1 AND swap_credits > 0
	`, sw.SenderID)
	if err != nil {
		return fmt.Errorf("consume swap credit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoSwapCredits
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO swaps (id, sender_id, receiver_id, product_id, offered_product_id, message, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, sw.ID, sw.SenderID, sw.ReceiverID, sw.ProductID, sw.OfferedProductID, sw.Message,
		string(sw.Status)).Scan(&sw.CreatedAt, &sw.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert swap: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetSwap returns a swap with its products and parties
func (s *Store) GetSwap(ctx context.Context, id uuid.UUID) (*models.Swap, error) {
	sw, err := scanSwap(s.pool.QueryRow(ctx, swapSelect+` WHERE s.id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return sw, nil
}

// ListSwapsForUser returns the swaps of a user narrowed by direction and status, newest first
func (s *Store) ListSwapsForUser(ctx context.Context, userID uuid.UUID, f models.SwapFilter) ([]models.Swap, error) {
	var where []string
	args := []any{userID}

	switch f.Direction {
	case models.SwapDirectionIncoming:
		where = append(where, "s.receiver_id = $1")
	case models.SwapDirectionOutgoing:
		where = append(where, "s.sender_id = $1")
	default:
		where = append(where, "(s.sender_id = $1 OR s.receiver_id = $1)")
	}

	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("s.status = $%d", len(args)))
	}

	query := swapSelect + " WHERE " + strings.Join(where, " AND ") + " ORDER BY s.created_at DESC"
	return s.querySwaps(ctx, query, args...)
}

// ListSwapHistory returns accepted swaps where the user is either party.
// A non-empty q matches the product name or id case-insensitively.
func (s *Store) ListSwapHistory(ctx context.Context, userID uuid.UUID, q string) ([]models.Swap, error) {
	query := swapSelect + ` WHERE (s.sender_id = $1 OR s.receiver_id = $1) AND s.status = 'accepted'`
	args := []any{userID}

	if q = strings.TrimSpace(q); q != "" {
		args = append(args, "%"+q+"%")
		query += ` AND (p.name ILIKE $2 OR p.id::text ILIKE $2)`
	}

	return s.querySwaps(ctx, query+` ORDER BY s.updated_at DESC`, args...)
}

// ListSwaps returns every swap, newest first
func (s *Store) ListSwaps(ctx context.Context) ([]models.Swap, error) {
	return s.querySwaps(ctx, swapSelect+` ORDER BY s.created_at DESC`)
}

// ListSwapsActiveIn returns swaps created in [from, to) or accepted in [from, to)
func (s *Store) ListSwapsActiveIn(ctx context.Context, from, to time.Time) ([]models.Swap, error) {
	return s.querySwaps(ctx, swapSelect+`
		WHERE (s.created_at >= $1 AND s.created_at < $2)
		   OR (s.status = 'accepted' AND s.updated_at >= $1 AND s.updated_at < $2)
		ORDER BY s.created_at DESC`, from, to)
}

// UpdateSwapStatus resolves a pending swap. A rejection refunds the sender's swap credit in the
// same transaction. It returns ErrNotFound for an unknown id and ErrStaleStatus when the swap is
// no longer pending.
func (s *Store) UpdateSwapStatus(ctx context.Context, id uuid.UUID, to models.SwapStatus) (*models.Swap, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var senderID uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE swaps SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING sender_id
	`, id, string(to)).Scan(&senderID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("update swap status: %w", err)
		}
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM swaps WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check swap: %w", err)
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrStaleStatus
	}

	if to == models.SwapRejected {
		if _, err = tx.Exec(ctx, `
			UPDATE user_profile SET swap_credits = swap_credits + 1, updated_at = NOW() WHERE id = $1
		`, senderID); err != nil {
			return nil, fmt.Errorf("refund swap credit: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetSwap(ctx, id)
}

func (s *Store) querySwaps(ctx context.Context, query string, args ...any) ([]models.Swap, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query swaps: %w", err)
	}
	defer rows.Close()

	swaps := []models.Swap{}
	for rows.Next() {
		sw, err := scanSwap(rows)
		if err != nil {
			return nil, fmt.Errorf("scan swap: %w", err)
		}
		swaps = append(swaps, *sw)
	}
	return swaps, rows.Err()
}

func scanSwap(row pgx.Row) (*models.Swap, error) {
	var sw models.Swap
	var status, redemption, productStatus string
	var offeredName, offeredImage *string
	p := &models.Product{}
	owner := &models.User{}
	sender := &models.User{}
	receiver := &models.User{}

	err := row.Scan(&sw.ID, &sw.SenderID, &sw.ReceiverID, &sw.ProductID, &sw.OfferedProductID, &sw.Message,
		&status, &sw.CreatedAt, &sw.UpdatedAt,
		&p.ID, &p.UserID, &p.Name, &p.Description, &p.Tags, &redemption, &productStatus,
		&p.ProductLink, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt,
		&owner.FirstName, &owner.LastName, &owner.AvatarURL,
		&offeredName, &offeredImage,
		&sender.FirstName, &sender.LastName, &sender.AvatarURL,
		&receiver.FirstName, &receiver.LastName, &receiver.AvatarURL)
	if err != nil {
		return nil, err
	}

	sw.Status = models.SwapStatus(status)
	p.RedemptionType = models.RedemptionType(redemption)
	p.Status = models.ProductStatus(productStatus)
	owner.ID = p.UserID
	p.Owner = owner
	sw.Product = p

	if sw.OfferedProductID != nil && offeredName != nil {
		offered := &models.Product{ID: *sw.OfferedProductID, UserID: sw.SenderID, Name: *offeredName}
		if offeredImage != nil {
			offered.ImageURL = *offeredImage
		}
		sw.OfferedProduct = offered
	}

	sender.ID = sw.SenderID
	receiver.ID = sw.ReceiverID
	sw.Sender = sender
	sw.Receiver = receiver
	return &sw, nil
}
