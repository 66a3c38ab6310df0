package request

import "time"

// Register holds the request body for account registration.
type Register struct {
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"omitempty,min=8,max=128"`
}

// CreateAPIKey holds the request body for issuing an API key.
type CreateAPIKey struct {
	Name      *string    `json:"name" validate:"omitempty,max=255"`
	ExpiresAt *time.Time `json:"expires_at"`
}
