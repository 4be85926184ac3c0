package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-checkout/internal/domain/catalog"
)

const getDishSQL = `SELECT d.id, d.name, d.price, d.restaurant_id, r.name, d.active AND r.active
	FROM dishes d
	JOIN restaurants r ON r.id = d.restaurant_id
	WHERE d.id = $1`

var _ catalog.Repository = (*DishRepository)(nil)

// DishRepository implements catalog.Repository backed by PostgreSQL.
type DishRepository struct {
	pool *pgxpool.Pool
}

// NewDishRepository returns a DishRepository that uses the given pool.
func NewDishRepository(pool *pgxpool.Pool) *DishRepository {
	return &DishRepository{pool: pool}
}

// GetDish returns an active dish of an active restaurant.
func (r *DishRepository) GetDish(ctx context.Context, id int64) (*catalog.Dish, error) {
	rows, err := r.pool.Query(ctx, getDishSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting dish %d: %w", id, err)
	}

	d, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (catalog.Dish, error) {
		var d catalog.Dish
		err := row.Scan(&d.ID, &d.Name, &d.Price, &d.RestaurantID, &d.RestaurantName, &d.Active)
		return d, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrDishNotFound
		}
		return nil, fmt.Errorf("getting dish %d: %w", id, err)
	}
	if !d.Active {
		return nil, catalog.ErrDishNotFound
	}
	return &d, nil
}
