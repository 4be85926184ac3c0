package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-checkout/internal/domain/checkout"
)

const (
	getSelectionSQL    = `SELECT selection FROM checkout_sessions WHERE session_id = $1`
	getConfirmationSQL = `SELECT confirmation FROM checkout_sessions WHERE session_id = $1`

	saveSelectionSQL = `INSERT INTO checkout_sessions (session_id, selection)
		VALUES ($1, $2)
		ON CONFLICT (session_id) DO UPDATE SET selection = EXCLUDED.selection, updated_at = now()`

	saveConfirmationSQL = `INSERT INTO checkout_sessions (session_id, confirmation)
		VALUES ($1, $2)
		ON CONFLICT (session_id) DO UPDATE SET confirmation = EXCLUDED.confirmation, updated_at = now()`
)

var _ checkout.Sessions = (*SessionStore)(nil)

// SessionStore keeps browsing-session checkout state as JSONB documents.
type SessionStore struct {
	pool *pgxpool.Pool
}

// NewSessionStore returns a SessionStore that uses the given pool.
func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Selection returns the saved payment-step selection.
func (s *SessionStore) Selection(ctx context.Context, sessionID string) (*checkout.Selection, error) {
	var sel checkout.Selection
	if err := s.load(ctx, getSelectionSQL, sessionID, &sel); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, checkout.ErrNoSelection
		}
		return nil, fmt.Errorf("loading selection: %w", err)
	}
	return &sel, nil
}

// SaveSelection replaces the session's selection.
func (s *SessionStore) SaveSelection(ctx context.Context, sessionID string, sel checkout.Selection) error {
	return s.save(ctx, saveSelectionSQL, sessionID, sel)
}

// Confirmation returns the last cached confirmation.
func (s *SessionStore) Confirmation(ctx context.Context, sessionID string) (*checkout.Confirmation, error) {
	var c checkout.Confirmation
	if err := s.load(ctx, getConfirmationSQL, sessionID, &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, checkout.ErrNoConfirmation
		}
		return nil, fmt.Errorf("loading confirmation: %w", err)
	}
	return &c, nil
}

// SaveConfirmation replaces the session's cached confirmation.
func (s *SessionStore) SaveConfirmation(ctx context.Context, sessionID string, c checkout.Confirmation) error {
	return s.save(ctx, saveConfirmationSQL, sessionID, c)
}

// load decodes the document column; a missing row or NULL document reports
// pgx.ErrNoRows.
func (s *SessionStore) load(ctx context.Context, query, sessionID string, dst any) error {
	var doc []byte
	if err := s.pool.QueryRow(ctx, query, sessionID).Scan(&doc); err != nil {
		return err
	}
	if len(doc) == 0 {
		return pgx.ErrNoRows
	}
	return json.Unmarshal(doc, dst)
}

func (s *SessionStore) save(ctx context.Context, query, sessionID string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling session document: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, sessionID, doc); err != nil {
		return fmt.Errorf("saving session %q: %w", sessionID, err)
	}
	return nil
}
