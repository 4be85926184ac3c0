// Package postgres implements the service's repositories on PostgreSQL via
// pgx.
package postgres

import (
	"context"
	"fmt"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/db"
	"github.com/xenking/kart-checkout/internal/domain/owner"
)

const (
	uniqueViolation      = "23505"
	serializationFailure = "40001"

	lockOwnerSQL = `SELECT pg_advisory_xact_lock(hashtext($1))`
)

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, db.Schema); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a unique violation of constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == uniqueViolation &&
		pgErr.ConstraintName == constraint
}

// isSerializationFailure reports whether a serializable transaction was
// aborted and may succeed when rerun.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == serializationFailure
}

// retrySerializable runs fn up to attempts times while it fails with a
// serialization failure.
func retrySerializable(ctx context.Context, attempts int, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if attempt >= attempts || !isSerializationFailure(err) || ctx.Err() != nil {
			return err
		}
		zctx.From(ctx).Debug("Retrying serializable transaction",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}

// lockOwners takes transaction-scoped advisory locks on the carts of owners
// in key order, so two transactions locking the same pair never deadlock.
func lockOwners(ctx context.Context, tx pgx.Tx, owners ...owner.Owner) error {
	keys := make([]string, 0, len(owners))
	for _, o := range owners {
		if !o.IsZero() {
			keys = append(keys, o.Key())
		}
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	for _, k := range keys {
		if _, err := tx.Exec(ctx, lockOwnerSQL, k); err != nil {
			return fmt.Errorf("locking cart %q: %w", k, err)
		}
	}
	return nil
}
