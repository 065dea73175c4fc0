package events

import (
	"context"
	"fmt"
	"time"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rajivgeraev/swapify-api/internal/models"
)

// NotifierStore is the storage the notifier needs
type NotifierStore interface {
	ListAdminIDs(ctx context.Context) ([]uuid.UUID, error)
	GetNotificationPrefs(ctx context.Context, userID uuid.UUID) (models.NotificationPrefs, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Pusher delivers stored notifications to waiting clients
type Pusher interface {
	Publish(n models.Notification)
}

// Notifier turns domain events into user notifications
type Notifier struct {
	store   NotifierStore
	pusher  Pusher
	log     *zap.Logger
	timeout time.Duration
}

// NewNotifier creates a Notifier
func NewNotifier(store NotifierStore, pusher Pusher, log *zap.Logger) *Notifier {
	return &Notifier{store: store, pusher: pusher, log: log, timeout: 5 * time.Second}
}

// Register subscribes the notifier to every topic of the bus
func (n *Notifier) Register(bus EventBus.BusSubscriber) error {
	subs := map[string]interface{}{
		TopicProductSubmitted: n.onProductSubmitted,
		TopicProductReviewed:  n.onProductReviewed,
		TopicSwapRequested:    n.onSwapRequested,
		TopicSwapResolved:     n.onSwapResolved,
		TopicShoutoutCreated:  n.onShoutoutCreated,
	}
	for topic, fn := range subs {
		if err := bus.Subscribe(topic, fn); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

func (n *Notifier) onProductSubmitted(e ProductSubmitted) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	admins, err := n.store.ListAdminIDs(ctx)
	if err != nil {
		n.log.Error("list admins failed", zap.Error(err))
		return
	}
	msg := fmt.Sprintf("New product %q is waiting for review", e.Product.Name)
	for _, id := range admins {
		n.send(ctx, id, models.KindProduct, msg)
	}
}

func (n *Notifier) onProductReviewed(e ProductReviewed) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	n.send(ctx, e.Product.UserID, models.KindProduct,
		fmt.Sprintf("Your product %q was %s", e.Product.Name, e.Product.Status))
}

func (n *Notifier) onSwapRequested(e SwapRequested) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	n.send(ctx, e.Swap.ReceiverID, models.KindSwap,
		fmt.Sprintf("%s requested a swap for your product %q", e.SenderName, e.ProductName))
}

func (n *Notifier) onSwapResolved(e SwapResolved) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	msg := fmt.Sprintf("%s accepted your swap request for %q", e.ReceiverName, e.ProductName)
	if e.Swap.Status == models.SwapRejected {
		msg = fmt.Sprintf("%s declined your swap request for %q. Your swap credit was refunded", e.ReceiverName, e.ProductName)
	}
	n.send(ctx, e.Swap.SenderID, models.KindSwap, msg)
}

func (n *Notifier) onShoutoutCreated(e ShoutoutCreated) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	n.send(ctx, e.Shoutout.UserID, models.KindSystem,
		fmt.Sprintf("You earned 1 swap credit for your shoutout on %q", e.ProductName))
	if e.OwnerID != uuid.Nil && e.OwnerID != e.Shoutout.UserID {
		n.send(ctx, e.OwnerID, models.KindShoutout,
			fmt.Sprintf("%s left a %d-star shoutout on %q", e.AuthorName, e.Shoutout.Rating, e.ProductName))
	}
}

// send stores and pushes one notification unless the recipient muted its kind.
// Failures are logged only.
func (n *Notifier) send(ctx context.Context, userID uuid.UUID, kind models.NotificationKind, message string) {
	log := n.log.With(zap.String("user_id", userID.String()), zap.String("kind", string(kind)))

	prefs, err := n.store.GetNotificationPrefs(ctx, userID)
	if err != nil {
		log.Warn("load notification prefs failed, using defaults", zap.Error(err))
		prefs = models.DefaultNotificationPrefs()
	}
	if !prefs.Allows(kind) {
		log.Debug("notification muted by preferences")
		return
	}

	notification := &models.Notification{UserID: userID, Kind: kind, Message: message}
	if err := n.store.CreateNotification(ctx, notification); err != nil {
		log.Error("create notification failed", zap.Error(err))
		return
	}
	if n.pusher != nil {
		n.pusher.Publish(*notification)
	}
}
