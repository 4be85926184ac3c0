// Package catalog describes the dish lookup the cart and checkout depend on.
// Menu administration lives outside this service.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrDishNotFound is returned when a dish does not exist or is not active.
var ErrDishNotFound = errors.New("dish not found")

// Dish is a catalog entry that can be put in a cart.
type Dish struct {
	ID             int64
	Name           string
	Price          decimal.Decimal
	RestaurantID   int64
	RestaurantName string
	Active         bool
}

// Repository provides read access to the dish catalog.
type Repository interface {
	// GetDish returns an active dish or ErrDishNotFound.
	GetDish(ctx context.Context, id int64) (*Dish, error)
}
