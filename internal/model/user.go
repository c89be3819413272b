package model

import "time"

// Roles recognised by the API. Admins can manage train runs and cancel
// any booking; customers operate only on their own holds and bookings.
const (
	RoleAdmin    = "ADMIN"
	RoleCustomer = "CUSTOMER"
)

// User represents a registered account.
type User struct {
	ID           uint64    `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RefreshToken stores the SHA-256 hash of an issued refresh token.  The
// raw token never touches the database.
type RefreshToken struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
