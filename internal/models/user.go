package models

import "time"

// User is a marketplace account. The same account can act as poster and
// hunter on different bounties.
type User struct {
	ID             ID        `json:"id"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name"`
	PasswordHash   string    `json:"-"`
	Role           string    `json:"role"` // "user" or "admin"
	DodoCustomerID string    `json:"-"`
	PushToken      string    `json:"-"` // device push token, empty if none registered
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Balance is a user's spendable balance in cents. Escrow holds are
// subtracted at acceptance time for paid bounties.
type Balance struct {
	UserID        ID        `json:"user_id"`
	AmountCents   int64     `json:"amount_cents"`
	EscrowedCents int64     `json:"escrowed_cents"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Profile is the public view of a user plus the fields the profile
// store fans out to subscribers.
type Profile struct {
	UserID      ID     `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Bio         string `json:"bio,omitempty"`
}

// SignupRequest is the request body for account creation.
type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries the JWT pair returned by auth endpoints.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}
