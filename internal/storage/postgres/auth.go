package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-checkout/internal/domain/auth"
)

const (
	getAPIKeyByHashSQL = `SELECT id, key_hash, name, scopes FROM api_keys
		WHERE key_hash = $1 AND active`

	getSessionByHashSQL = `SELECT s.token_hash, s.expires_at, a.id, a.display_name, a.email
		FROM account_sessions s
		JOIN accounts a ON a.id = s.account_id
		WHERE s.token_hash = $1`
)

var (
	_ auth.APIKeyRepository  = (*APIKeyRepository)(nil)
	_ auth.SessionRepository = (*AccountSessionRepository)(nil)
)

// APIKeyRepository provides API key lookups backed by PostgreSQL.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository returns an APIKeyRepository that uses the given pool.
func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

// FindByHash looks up an active API key by its HMAC-SHA256 hash.
// Returns an error wrapping pgx.ErrNoRows when no matching key exists.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKeyInfo, error) {
	var k auth.APIKeyInfo
	err := r.pool.QueryRow(ctx, getAPIKeyByHashSQL, hash).Scan(&k.ID, &k.KeyHash, &k.Name, &k.Scopes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("api key not found: %w", err)
		}
		return nil, fmt.Errorf("finding api key by hash: %w", err)
	}
	return &k, nil
}

// AccountSessionRepository looks up bearer sessions.
type AccountSessionRepository struct {
	pool *pgxpool.Pool
}

// NewAccountSessionRepository returns an AccountSessionRepository that uses
// the given pool.
func NewAccountSessionRepository(pool *pgxpool.Pool) *AccountSessionRepository {
	return &AccountSessionRepository{pool: pool}
}

// FindSessionByHash returns the session with its account.
func (r *AccountSessionRepository) FindSessionByHash(ctx context.Context, hash string) (*auth.Session, error) {
	var (
		s         auth.Session
		expiresAt *time.Time
	)
	err := r.pool.QueryRow(ctx, getSessionByHashSQL, hash).Scan(
		&s.TokenHash, &expiresAt, &s.Account.ID, &s.Account.DisplayName, &s.Account.Email,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", err)
		}
		return nil, fmt.Errorf("finding session by hash: %w", err)
	}
	if expiresAt != nil {
		s.ExpiresAt = *expiresAt
	}
	return &s, nil
}
