package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/swapify-api/internal/models"
)

// CreateNotification inserts an unread notification
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Kind == "" {
		n.Kind = models.KindSystem
	}
	n.ReadStatus = false

	err := s.pool.QueryRow(ctx, `
		INSERT INTO notifications (id, user_id, kind, message) VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, n.ID, n.UserID, string(n.Kind), n.Message).Scan(&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns the notifications of a user, newest first
func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error) {
	query := `
		SELECT id, user_id, kind, message, read_status, created_at, updated_at
		FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND read_status = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	rows, err := s.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	list := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		var kind string
		if err := rows.Scan(&n.ID, &n.UserID, &kind, &n.Message, &n.ReadStatus, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Kind = models.NotificationKind(kind)
		list = append(list, n)
	}
	return list, rows.Err()
}

// CountUnread returns the number of unread notifications of a user
func (s *Store) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_status = FALSE
	`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// MarkNotificationRead marks one notification of the user as read.
// A notification of another user returns ErrNotFound.
func (s *Store) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET read_status = TRUE, updated_at = NOW() WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification of the user as read
func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET read_status = TRUE, updated_at = NOW() WHERE user_id = $1 AND read_status = FALSE
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PurgeReadNotifications deletes read notifications created before the cutoff
func (s *Store) PurgeReadNotifications(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM notifications WHERE read_status = TRUE AND created_at < $1
	`, before)
	if err != nil {
		return 0, fmt.Errorf("purge notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}
