package model

import "time"

// Account owns databases and API keys. PasswordHash is a bcrypt hash and is
// never serialized.
type Account struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	Email                  string    `json:"email"`
	PasswordHash           string    `json:"-"`
	CreatedAt              time.Time `json:"created_at"`
	MaxDatabases           int       `json:"max_databases"`
	TotalStorageLimitBytes int64     `json:"total_storage_limit_bytes"`
}
