package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rajivgeraev/swapify-api/internal/models"
)

// subscriberBuffer is the number of notifications queued for one waiting client
const subscriberBuffer = 8

// Subscriber is one waiting client of a user
type Subscriber struct {
	ID     uuid.UUID
	UserID uuid.UUID
	send   chan models.Notification
}

// C returns the channel notifications are delivered on
func (s *Subscriber) C() <-chan models.Notification {
	return s.send
}

// Hub fans notifications out to the clients waiting for them
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*Subscriber              // subscriber id -> subscriber
	users       map[uuid.UUID]map[uuid.UUID]struct{} // user id -> subscriber ids
	closed      bool
	log         *zap.Logger
}

// NewHub creates an empty hub
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID]*Subscriber),
		users:       make(map[uuid.UUID]map[uuid.UUID]struct{}),
		log:         log,
	}
}

// Subscribe registers a new client of the user. A closed hub returns nil.
func (h *Hub) Subscribe(userID uuid.UUID) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	sub := &Subscriber{
		ID:     uuid.New(),
		UserID: userID,
		send:   make(chan models.Notification, subscriberBuffer),
	}
	h.subscribers[sub.ID] = sub
	if _, ok := h.users[userID]; !ok {
		h.users[userID] = make(map[uuid.UUID]struct{})
	}
	h.users[userID][sub.ID] = struct{}{}

	h.log.Debug("notification subscriber added", zap.String("user_id", userID.String()), zap.String("subscriber_id", sub.ID.String()))
	return sub
}

// Unsubscribe removes a client and closes its channel
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[sub.ID]; !ok {
		return
	}
	delete(h.subscribers, sub.ID)
	if ids, ok := h.users[sub.UserID]; ok {
		delete(ids, sub.ID)
		// last client of the user
		if len(ids) == 0 {
			delete(h.users, sub.UserID)
		}
	}
	close(sub.send)
}

// Publish delivers a notification to every client of its recipient. A client whose
// queue is full misses the notification; it is still stored and listed.
func (h *Hub) Publish(n models.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id := range h.users[n.UserID] {
		sub := h.subscribers[id]
		select {
		case sub.send <- n:
		default:
			h.log.Warn("notification subscriber queue full", zap.String("subscriber_id", id.String()))
		}
	}
}

// Wait blocks until the next notification for the user, the timeout or ctx cancellation.
// The boolean is false when nothing arrived.
func (h *Hub) Wait(ctx context.Context, userID uuid.UUID, timeout time.Duration) (models.Notification, bool) {
	sub := h.Subscribe(userID)
	if sub == nil {
		return models.Notification{}, false
	}
	defer h.Unsubscribe(sub)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case n, ok := <-sub.C():
		return n, ok
	case <-timer.C:
		return models.Notification{}, false
	case <-ctx.Done():
		return models.Notification{}, false
	}
}

// Online returns the number of users with at least one waiting client
func (h *Hub) Online() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users)
}

// Shutdown closes every subscriber. Later subscriptions are refused.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subscribers {
		close(sub.send)
	}
	h.subscribers = make(map[uuid.UUID]*Subscriber)
	h.users = make(map[uuid.UUID]map[uuid.UUID]struct{})
	h.closed = true
}
