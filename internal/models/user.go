package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the access level of an account
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether the role is known
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// HomePath returns the page a user lands on after signing in
func (r Role) HomePath() string {
	if r == RoleAdmin {
		return "/admin"
	}
	return "/user"
}

// User represents the public part of an account
type User struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

// UserProfile is a full account row from user_profile
type UserProfile struct {
	ID           uuid.UUID         `json:"id"`
	Email        string            `json:"email"`
	PasswordHash string            `json:"-"`
	FirstName    string            `json:"first_name"`
	LastName     string            `json:"last_name"`
	AvatarURL    string            `json:"avatar_url,omitempty"`
	Role         Role              `json:"role"`
	SwapCredits  int               `json:"swap_credits"`
	Prefs        NotificationPrefs `json:"-"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Public strips the private fields of a profile
func (u UserProfile) Public() *User {
	return &User{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		AvatarURL: u.AvatarURL,
	}
}

// DisplayName returns "First Last", falling back to the email and then to "A user"
func (u UserProfile) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.Email != "" {
		return u.Email
	}
	return "A user"
}
