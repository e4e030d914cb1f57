package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"slices"
)

// ScopeAdmin grants access to the back-office endpoints.
const ScopeAdmin = "admin"

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key was granted scope.
func (i *APIKeyInfo) HasScope(scope string) bool {
	return slices.Contains(i.Scopes, scope)
}

// APIKeyRepository provides lookup of API keys by their HMAC hash.
type APIKeyRepository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
	Create(ctx context.Context, info *APIKeyInfo) error
}

// HashAPIKey returns the hex HMAC-SHA256 of key under pepper. Only hashes
// are stored.
func HashAPIKey(pepper []byte, key string) []byte {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return mac.Sum(nil)
}

// HashAPIKeyHex is HashAPIKey encoded as lowercase hex.
func HashAPIKeyHex(pepper []byte, key string) string {
	return hex.EncodeToString(HashAPIKey(pepper, key))
}
