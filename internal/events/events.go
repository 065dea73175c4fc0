package events

import (
	EventBus "github.com/asaskevich/EventBus"
	"github.com/google/uuid"

	"github.com/rajivgeraev/swapify-api/internal/models"
)

// Topics
const (
	TopicProductSubmitted = "product:submitted"
	TopicProductReviewed  = "product:reviewed"
	TopicSwapRequested    = "swap:requested"
	TopicSwapResolved     = "swap:resolved"
	TopicShoutoutCreated  = "shoutout:created"
)

// Publisher is the publishing side of the bus
type Publisher = EventBus.BusPublisher

// NewBus creates the in-process event bus
func NewBus() EventBus.Bus {
	return EventBus.New()
}

// ProductSubmitted is published after a product is stored as pending
type ProductSubmitted struct {
	Product models.Product
}

// ProductReviewed is published after an admin approves or rejects a product
type ProductReviewed struct {
	Product models.Product
}

// SwapRequested is published after a swap request is stored
type SwapRequested struct {
	Swap        models.Swap
	ProductName string
	SenderName  string
}

// SwapResolved is published after the receiver accepts or rejects a swap
type SwapResolved struct {
	Swap         models.Swap
	ProductName  string
	ReceiverName string
}

// ShoutoutCreated is published after a shoutout is stored and the credit awarded
type ShoutoutCreated struct {
	Shoutout    models.Shoutout
	ProductName string
	OwnerID     uuid.UUID
	AuthorName  string
}
