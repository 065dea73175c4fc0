package models

import (
	"time"

	"github.com/google/uuid"
)

// SwapStatus is the state of a swap request
type SwapStatus string

const (
	SwapPending  SwapStatus = "pending"
	SwapAccepted SwapStatus = "accepted"
	SwapRejected SwapStatus = "rejected"
)

// CanTransitionTo reports whether a swap may move from s to next.
// Accepted and rejected are terminal.
func (s SwapStatus) CanTransitionTo(next SwapStatus) bool {
	return s == SwapPending && (next == SwapAccepted || next == SwapRejected)
}

// Swap represents a swap request between two users
type Swap struct {
	ID               uuid.UUID  `json:"id"`
	SenderID         uuid.UUID  `json:"sender_id"`
	ReceiverID       uuid.UUID  `json:"receiver_id"`
	ProductID        uuid.UUID  `json:"product_id"`
	OfferedProductID *uuid.UUID `json:"offered_product_id,omitempty"`
	Message          string     `json:"message"`
	Status           SwapStatus `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// Extra fields for the API
	Product        *Product `json:"product,omitempty"`
	OfferedProduct *Product `json:"offered_product,omitempty"`
	Sender         *User    `json:"sender,omitempty"`
	Receiver       *User    `json:"receiver,omitempty"`
}

// SwapDirection selects swaps relative to the current user
type SwapDirection string

const (
	SwapDirectionAll      SwapDirection = "all"
	SwapDirectionIncoming SwapDirection = "incoming"
	SwapDirectionOutgoing SwapDirection = "outgoing"
)

// SwapFilter narrows the swaps listed for a user. An empty Status means any status.
type SwapFilter struct {
	Direction SwapDirection
	Status    SwapStatus
}
