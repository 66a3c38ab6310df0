package model

import "time"

// APIKey is an opaque bearer credential bound to one account. Only the
// SHA-256 hash of the secret is persisted; the plaintext is shown once at
// creation and is unrecoverable afterwards.
type APIKey struct {
	ID         string     `json:"id"`
	AccountID  string     `json:"account_id"`
	KeyHash    string     `json:"-"`
	Name       *string    `json:"name"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	IsActive   bool       `json:"is_active"`
}

// CreatedAPIKey is the one-time creation response carrying the plaintext key.
type CreatedAPIKey struct {
	ID        string     `json:"id"`
	Name      *string    `json:"name"`
	Key       string     `json:"key"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
