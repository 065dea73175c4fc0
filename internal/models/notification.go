package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind groups notifications so users can mute them per category
type NotificationKind string

const (
	KindProduct  NotificationKind = "product"
	KindSwap     NotificationKind = "swap"
	KindShoutout NotificationKind = "shoutout"
	KindSystem   NotificationKind = "system"
)

// Notification is a message shown to a single user
type Notification struct {
	ID         uuid.UUID        `json:"id"`
	UserID     uuid.UUID        `json:"user_id"`
	Kind       NotificationKind `json:"kind"`
	Message    string           `json:"message"`
	ReadStatus bool             `json:"read_status"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Digest frequencies
const (
	DigestOff    = "off"
	DigestDaily  = "daily"
	DigestWeekly = "weekly"
)

// NotificationPrefs are per-user notification settings
type NotificationPrefs struct {
	Email          bool   `json:"email"`
	Push           bool   `json:"push"`
	ProductUpdates bool   `json:"productUpdates"`
	SwapEvents     bool   `json:"swapEvents"`
	Shoutouts      bool   `json:"shoutouts"`
	Digest         string `json:"digest"`
}

// DefaultNotificationPrefs returns the settings new accounts start with
func DefaultNotificationPrefs() NotificationPrefs {
	return NotificationPrefs{
		Email:          true,
		Push:           false,
		ProductUpdates: true,
		SwapEvents:     true,
		Shoutouts:      true,
		Digest:         DigestDaily,
	}
}

// ValidDigest reports whether d is a known digest frequency
func ValidDigest(d string) bool {
	return d == DigestOff || d == DigestDaily || d == DigestWeekly
}

// Allows reports whether a notification of the given kind should be delivered
func (p NotificationPrefs) Allows(kind NotificationKind) bool {
	switch kind {
	case KindProduct:
		return p.ProductUpdates
	case KindSwap:
		return p.SwapEvents
	case KindShoutout:
		return p.Shoutouts
	default:
		return true
	}
}
