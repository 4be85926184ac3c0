package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/owner"
)

const (
	// The owner predicate matches one column only: the other argument is NULL.
	listCartLinesSQL = `SELECT cl.id, cl.dish_id, d.name, d.restaurant_id, r.name, d.price,
			cl.quantity, cl.options, cl.created_at, cl.updated_at, NOT (d.active AND r.active)
		FROM cart_lines cl
		JOIN dishes d ON d.id = cl.dish_id
		JOIN restaurants r ON r.id = d.restaurant_id
		WHERE (cl.account_id = $1 OR cl.anon_token = $2)
		ORDER BY cl.created_at, cl.id`

	upsertAccountLineSQL = `INSERT INTO cart_lines (id, account_id, dish_id, quantity, options)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id, dish_id) WHERE account_id IS NOT NULL
		DO UPDATE SET quantity = EXCLUDED.quantity,
			options = COALESCE(EXCLUDED.options, cart_lines.options),
			updated_at = now()`

	upsertAnonLineSQL = `INSERT INTO cart_lines (id, anon_token, dish_id, quantity, options)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (anon_token, dish_id) WHERE anon_token IS NOT NULL
		DO UPDATE SET quantity = EXCLUDED.quantity,
			options = COALESCE(EXCLUDED.options, cart_lines.options),
			updated_at = now()`

	deleteCartLineSQL = `DELETE FROM cart_lines
		WHERE (account_id = $1 OR anon_token = $2) AND dish_id = $3`

	clearCartSQL = `DELETE FROM cart_lines WHERE (account_id = $1 OR anon_token = $2)`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Mutations
// serialize per owner on transaction-scoped advisory locks.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Lines returns the owner's lines, oldest first.
func (r *CartRepository) Lines(ctx context.Context, o owner.Owner) ([]cart.Line, error) {
	return cartLines(ctx, r.pool, o)
}

// Update runs fn in a transaction holding the advisory locks of owners.
func (r *CartRepository) Update(
	ctx context.Context,
	fn func(ctx context.Context, tx cart.Tx) error,
	owners ...owner.Owner,
) error {
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := lockOwners(ctx, tx, owners...); err != nil {
			return err
		}
		return fn(ctx, &cartTx{q: tx})
	})
}

// cartTx implements cart.Tx on an open transaction.
type cartTx struct {
	q querier
}

func (t *cartTx) Lines(ctx context.Context, o owner.Owner) ([]cart.Line, error) {
	return cartLines(ctx, t.q, o)
}

func (t *cartTx) Upsert(
	ctx context.Context,
	o owner.Owner,
	dishID int64,
	quantity int,
	options json.RawMessage,
) error {
	var opts any
	if len(options) > 0 {
		opts = []byte(options)
	}

	var (
		query   string
		ownerID any
	)
	if id, ok := o.AccountID(); ok {
		query, ownerID = upsertAccountLineSQL, id
	} else if token, ok := o.Token(); ok {
		query, ownerID = upsertAnonLineSQL, token
	} else {
		return owner.ErrOwnerRequired
	}

	if _, err := t.q.Exec(ctx, query, uuid.New(), ownerID, dishID, quantity, opts); err != nil {
		return fmt.Errorf("upserting line for dish %d: %w", dishID, err)
	}
	return nil
}

func (t *cartTx) Delete(ctx context.Context, o owner.Owner, dishID int64) error {
	accountID, token := ownerArgs(o)
	if _, err := t.q.Exec(ctx, deleteCartLineSQL, accountID, token, dishID); err != nil {
		return fmt.Errorf("deleting line for dish %d: %w", dishID, err)
	}
	return nil
}

func (t *cartTx) Clear(ctx context.Context, o owner.Owner) error {
	return clearCart(ctx, t.q, o)
}

func cartLines(ctx context.Context, q querier, o owner.Owner) ([]cart.Line, error) {
	if o.IsZero() {
		return []cart.Line{}, nil
	}
	accountID, token := ownerArgs(o)
	rows, err := q.Query(ctx, listCartLinesSQL, accountID, token)
	if err != nil {
		return nil, fmt.Errorf("listing cart of %s: %w", o, err)
	}
	lines, err := pgx.CollectRows(rows, scanCartLine)
	if err != nil {
		return nil, fmt.Errorf("listing cart of %s: %w", o, err)
	}
	if lines == nil {
		lines = []cart.Line{}
	}
	return lines, nil
}

func clearCart(ctx context.Context, q querier, o owner.Owner) error {
	accountID, token := ownerArgs(o)
	if _, err := q.Exec(ctx, clearCartSQL, accountID, token); err != nil {
		return fmt.Errorf("clearing cart of %s: %w", o, err)
	}
	return nil
}

// ownerArgs returns the account id and anonymous token query arguments; the
// one that does not apply is nil.
func ownerArgs(o owner.Owner) (accountID, token any) {
	if id, ok := o.AccountID(); ok {
		return id, nil
	}
	if t, ok := o.Token(); ok {
		return nil, t
	}
	return nil, nil
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var (
		l       cart.Line
		id      uuid.UUID
		options []byte
	)
	err := row.Scan(
		&id, &l.DishID, &l.DishName, &l.RestaurantID, &l.RestaurantName, &l.UnitPrice,
		&l.Quantity, &options, &l.CreatedAt, &l.UpdatedAt, &l.Unavailable,
	)
	if err != nil {
		return l, err
	}
	l.ID = id.String()
	if len(options) > 0 {
		l.Options = json.RawMessage(options)
	}
	return l, nil
}
