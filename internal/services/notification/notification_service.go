package notification

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/rajivgeraev/swapify-api/internal/db"
	"github.com/rajivgeraev/swapify-api/internal/middleware"
	"github.com/rajivgeraev/swapify-api/internal/models"
)

const (
	defaultLimit = 50
	maxLimit     = 100

	defaultWait = 25 * time.Second
	maxWait     = 30 * time.Second
)

// Store is the storage the notification endpoints need
type Store interface {
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	GetNotificationPrefs(ctx context.Context, userID uuid.UUID) (models.NotificationPrefs, error)
	UpdateNotificationPrefs(ctx context.Context, userID uuid.UUID, prefs models.NotificationPrefs) error
}

// Waiter blocks until a notification is pushed to a user
type Waiter interface {
	Wait(ctx context.Context, userID uuid.UUID, timeout time.Duration) (models.Notification, bool)
}

// NotificationService serves the notification inbox and preferences
type NotificationService struct {
	store  Store
	waiter Waiter
	log    *zap.Logger
}

// NewNotificationService creates a NotificationService
func NewNotificationService(store Store, waiter Waiter, log *zap.Logger) *NotificationService {
	return &NotificationService{store: store, waiter: waiter, log: log.Named("notification")}
}

// List returns the caller's notifications, newest first
func (s *NotificationService) List(c fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	limit := defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := cast.ToIntE(raw)
		if err != nil || n < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid limit"})
		}
		limit = min(n, maxLimit)
	}
	unreadOnly := c.Query("unread") == "true"

	ctx, cancel := db.GetContext()
	defer cancel()

	notifications, err := s.store.ListNotifications(ctx, userID, unreadOnly, limit)
	if err != nil {
		s.log.Error("list notifications failed", zap.String("user_id", userID.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load notifications"})
	}

	return c.JSON(fiber.Map{"notifications": notifications, "count": len(notifications)})
}

// UnreadCount returns the number of unread notifications of the caller
func (s *NotificationService) UnreadCount(c fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		s.log.Error("count unread failed", zap.String("user_id", userID.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to count notifications"})
	}

	return c.JSON(fiber.Map{"unread": count})
}

// Wait long-polls for the next notification. It answers 204 when none arrives in time.
// The timeout query parameter is in seconds and may be fractional.
func (s *NotificationService) Wait(c fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	timeout, ok := parseWait(c.Query("timeout"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid timeout"})
	}

	n, ok := s.waiter.Wait(context.Background(), userID, timeout)
	if !ok {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(fiber.Map{"notification": n})
}

// parseWait turns the timeout parameter into a wait between zero and maxWait
func parseWait(raw string) (time.Duration, bool) {
	if raw == "" {
		return defaultWait, true
	}
	secs, err := cast.ToFloat64E(raw)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) || secs <= 0 {
		return 0, false
	}
	if secs >= maxWait.Seconds() {
		return maxWait, true
	}
	return time.Duration(secs * float64(time.Second)), true
}

// MarkRead marks one of the caller's notifications as read
func (s *NotificationService) MarkRead(c fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid notification ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.store.MarkNotificationRead(ctx, userID, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found"})
		}
		s.log.Error("mark notification read failed", zap.String("user_id", userID.String()), zap.String("notification_id", id.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update notification"})
	}

	return c.JSON(fiber.Map{"success": true})
}

// MarkAllRead marks every notification of the caller as read
func (s *NotificationService) MarkAllRead(c fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	updated, err := s.store.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		s.log.Error("mark all notifications read failed", zap.String("user_id", userID.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update notifications"})
	}

	return c.JSON(fiber.Map{"success": true, "updated": updated})
}

// GetPreferences returns the caller's notification settings
func (s *NotificationService) GetPreferences(c fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	prefs, err := s.store.GetNotificationPrefs(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		s.log.Error("get notification prefs failed", zap.String("user_id", userID.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load preferences"})
	}

	return c.JSON(fiber.Map{"preferences": prefs})
}

// UpdatePreferences replaces the caller's notification settings
func (s *NotificationService) UpdatePreferences(c fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	prefs := models.DefaultNotificationPrefs()
	if err := c.Bind().Body(&prefs); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if !models.ValidDigest(prefs.Digest) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Digest must be off, daily or weekly"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.store.UpdateNotificationPrefs(ctx, userID, prefs); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		s.log.Error("update notification prefs failed", zap.String("user_id", userID.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save preferences"})
	}

	return c.JSON(fiber.Map{"success": true, "preferences": prefs})
}
