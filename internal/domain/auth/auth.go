// Package auth authenticates customer sessions and fulfillment API keys.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"slices"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrUnauthorized is returned for unknown, expired or malformed credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when a valid API key lacks the required scope.
	ErrForbidden = errors.New("forbidden")
)

// ScopeUpdateOrderStatus allows moving orders through fulfillment.
const ScopeUpdateOrderStatus = "update_order_status"

// Account is an authenticated customer.
type Account struct {
	ID          int64
	DisplayName string
	Email       string
}

// Session is a stored bearer session of an account.
type Session struct {
	TokenHash string
	Account   Account
	ExpiresAt time.Time
}

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key grants scope.
func (k *APIKeyInfo) HasScope(scope string) bool {
	return slices.Contains(k.Scopes, scope)
}

// SessionRepository looks up account sessions by token hash.
type SessionRepository interface {
	FindSessionByHash(ctx context.Context, hash string) (*Session, error)
}

// APIKeyRepository looks up API keys by their HMAC hash.
type APIKeyRepository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// Authenticator verifies bearer tokens and API keys. Secrets are never
// stored, only their HMAC-SHA256 under a server-side pepper.
type Authenticator struct {
	sessions SessionRepository
	apikeys  APIKeyRepository
	pepper   []byte
	now      func() time.Time
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(sessions SessionRepository, apikeys APIKeyRepository, pepper []byte) *Authenticator {
	return &Authenticator{
		sessions: sessions,
		apikeys:  apikeys,
		pepper:   pepper,
		now:      time.Now,
	}
}

// Hash returns the hex HMAC-SHA256 of secret.
func (a *Authenticator) Hash(secret string) string {
	return hex.EncodeToString(a.mac(secret))
}

func (a *Authenticator) mac(secret string) []byte {
	m := hmac.New(sha256.New, a.pepper)
	m.Write([]byte(secret))
	return m.Sum(nil)
}

// verify compares the stored hex hash with the computed one in constant time.
func verify(computed []byte, stored string) bool {
	storedBytes, err := hex.DecodeString(stored)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(computed, storedBytes) == 1
}

// Account resolves a bearer session token to its account.
func (a *Authenticator) Account(ctx context.Context, token string) (*Account, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	sum := a.mac(token)
	sess, err := a.sessions.FindSessionByHash(ctx, hex.EncodeToString(sum))
	if err != nil {
		return nil, errors.Wrap(ErrUnauthorized, err.Error())
	}
	if !verify(sum, sess.TokenHash) {
		return nil, ErrUnauthorized
	}
	if !sess.ExpiresAt.IsZero() && !a.now().Before(sess.ExpiresAt) {
		return nil, ErrUnauthorized
	}
	acc := sess.Account
	return &acc, nil
}

// APIKey validates key and checks that it grants scope.
func (a *Authenticator) APIKey(ctx context.Context, key, scope string) (*APIKeyInfo, error) {
	if key == "" {
		return nil, ErrUnauthorized
	}
	sum := a.mac(key)
	info, err := a.apikeys.FindByHash(ctx, hex.EncodeToString(sum))
	if err != nil {
		return nil, errors.Wrap(ErrUnauthorized, err.Error())
	}
	if !verify(sum, info.KeyHash) {
		return nil, ErrUnauthorized
	}
	if scope != "" && !info.HasScope(scope) {
		return nil, ErrForbidden
	}
	return info, nil
}
