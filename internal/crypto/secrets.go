// Package crypto holds the secret hashing helpers shared by the auth
// service and CLI tooling.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashSecret computes the SHA-256 hex digest stored in place of a plaintext
// API key. Keys are only ever persisted and compared in this form.
func HashSecret(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}
