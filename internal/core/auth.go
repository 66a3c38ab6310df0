package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/edvin/tenantdb/internal/apperr"
	"github.com/edvin/tenantdb/internal/config"
	"github.com/edvin/tenantdb/internal/crypto"
	"github.com/edvin/tenantdb/internal/db"
	"github.com/edvin/tenantdb/internal/model"
	"github.com/edvin/tenantdb/internal/platform"
)

// AuthService manages accounts and the API keys that authenticate them.
type AuthService struct {
	db  db.DB
	cfg *config.Config
}

func NewAuthService(metaDB db.DB, cfg *config.Config) *AuthService {
	return &AuthService{db: metaDB, cfg: cfg}
}

// CreateAccount registers a new account. The password is optional; when
// supplied only its bcrypt hash is stored.
func (s *AuthService) CreateAccount(ctx context.Context, name, email, password string) (*model.Account, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	var existing string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM accounts WHERE email = ?`, email).Scan(&existing)
	if err == nil {
		return nil, apperr.Conflict("Account with this email already exists")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check account email: %w", err)
	}

	var passwordHash sql.NullString
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		passwordHash = sql.NullString{String: string(hash), Valid: true}
	}

	account := &model.Account{
		ID:                     platform.NewID(),
		Name:                   name,
		Email:                  email,
		PasswordHash:           passwordHash.String,
		CreatedAt:              time.Now().UTC(),
		MaxDatabases:           s.cfg.DefaultMaxDatabases,
		TotalStorageLimitBytes: s.cfg.DefaultStorageLimitBytes,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, email, password_hash, created_at, max_databases, total_storage_limit_bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		account.ID, account.Name, account.Email, passwordHash, account.CreatedAt,
		account.MaxDatabases, account.TotalStorageLimitBytes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}

	return account, nil
}

// VerifyPassword checks a plaintext password against an account's stored hash.
func (s *AuthService) VerifyPassword(account *model.Account, password string) bool {
	if account.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) == nil
}

// CreateAPIKey issues a new key for the account and returns the plaintext
// secret exactly once. Only the hash is persisted.
func (s *AuthService) CreateAPIKey(ctx context.Context, accountID string, name *string, expiresAt *time.Time) (*model.CreatedAPIKey, error) {
	var exists string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM accounts WHERE id = ?`, accountID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Account not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", accountID, err)
	}

	key := &model.CreatedAPIKey{
		ID:        platform.NewID(),
		Name:      name,
		Key:       s.cfg.APIKeyPrefix + platform.NewSecret(32),
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO api_keys (id, account_id, key_hash, name, created_at, expires_at, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, 1)`,
		key.ID, accountID, crypto.HashSecret(key.Key), name, key.CreatedAt, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert api key: %w", err)
	}

	return key, nil
}

// ValidateAPIKey resolves a bearer secret to its owning account, updating
// the key's last_used_at. Revoked and expired keys are rejected.
func (s *AuthService) ValidateAPIKey(ctx context.Context, secret string) (*model.Account, error) {
	if !strings.HasPrefix(secret, s.cfg.APIKeyPrefix) {
		return nil, apperr.Unauthorized("Invalid API key format")
	}

	var (
		keyID        string
		expiresAt    sql.NullTime
		account      model.Account
		passwordHash sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT ak.id, ak.expires_at,
		        a.id, a.name, a.email, a.password_hash, a.created_at, a.max_databases, a.total_storage_limit_bytes
		 FROM api_keys ak
		 JOIN accounts a ON a.id = ak.account_id
		 WHERE ak.key_hash = ? AND ak.is_active = 1`,
		crypto.HashSecret(secret),
	).Scan(&keyID, &expiresAt,
		&account.ID, &account.Name, &account.Email, &passwordHash,
		&account.CreatedAt, &account.MaxDatabases, &account.TotalStorageLimitBytes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Unauthorized("Invalid API key")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup api key: %w", err)
	}
	account.PasswordHash = passwordHash.String

	if expiresAt.Valid && expiresAt.Time.Before(time.Now()) {
		return nil, apperr.Unauthorized("API key has expired")
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = ? WHERE id = ?`, time.Now().UTC(), keyID,
	); err != nil {
		return nil, fmt.Errorf("touch api key: %w", err)
	}

	return &account, nil
}

// RevokeAPIKey deactivates a key. Revocation is permanent; keys are never
// deleted or reactivated.
func (s *AuthService) RevokeAPIKey(ctx context.Context, accountID, keyID string) error {
	var ownerID string
	err := s.db.QueryRowContext(ctx, `SELECT account_id FROM api_keys WHERE id = ?`, keyID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("API key not found")
	}
	if err != nil {
		return fmt.Errorf("get api key %s: %w", keyID, err)
	}

	if ownerID != accountID {
		return apperr.Unauthorized("Cannot revoke key from another account")
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET is_active = 0 WHERE id = ?`, keyID,
	); err != nil {
		return fmt.Errorf("revoke api key %s: %w", keyID, err)
	}
	return nil
}

// ListAPIKeys returns the account's active keys, without their hashes.
func (s *AuthService) ListAPIKeys(ctx context.Context, accountID string) ([]model.APIKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, name, created_at, last_used_at, expires_at
		 FROM api_keys
		 WHERE account_id = ? AND is_active = 1
		 ORDER BY created_at DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []model.APIKey
	for rows.Next() {
		var (
			k          model.APIKey
			name       sql.NullString
			lastUsedAt sql.NullTime
			expiresAt  sql.NullTime
		)
		if err := rows.Scan(&k.ID, &k.AccountID, &name, &k.CreatedAt, &lastUsedAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		if name.Valid {
			k.Name = &name.String
		}
		if lastUsedAt.Valid {
			k.LastUsedAt = &lastUsedAt.Time
		}
		if expiresAt.Valid {
			k.ExpiresAt = &expiresAt.Time
		}
		k.IsActive = true
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate api keys: %w", err)
	}
	return keys, nil
}
