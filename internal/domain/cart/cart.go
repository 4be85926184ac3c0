// Package cart maintains the in-progress cart of an owner.
//
// A cart holds at most one line per dish and every line of a cart references
// dishes of the same restaurant. Adding a dish from another restaurant to a
// non-empty cart is rejected rather than replacing the cart.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/domain/owner"
	"github.com/xenking/kart-checkout/internal/domain/pricing"
)

// Line is a cart line enriched with the dish and restaurant it references.
type Line struct {
	ID             string
	DishID         int64
	DishName       string
	RestaurantID   int64
	RestaurantName string
	UnitPrice      decimal.Decimal
	Quantity       int
	// Options is an opaque per-line customization payload (JSON).
	Options   json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
	// Unavailable is set once the dish or its restaurant has been deactivated
	// after the line was added.
	Unavailable bool
}

// PricingLines converts cart lines into the calculator's input.
func PricingLines(lines []Line) []pricing.Line {
	out := make([]pricing.Line, len(lines))
	for i, l := range lines {
		out[i] = pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity}
	}
	return out
}

// ErrCrossRestaurant matches every *CrossRestaurantError.
var ErrCrossRestaurant = errors.New("cart holds dishes of another restaurant")

// CrossRestaurantError is returned when a dish would mix restaurants in a cart.
type CrossRestaurantError struct {
	CartRestaurantID int64
	DishRestaurantID int64
}

func (e *CrossRestaurantError) Error() string {
	return fmt.Sprintf("cart holds dishes of restaurant %d, cannot add dish of restaurant %d",
		e.CartRestaurantID, e.DishRestaurantID)
}

func (e *CrossRestaurantError) Unwrap() error { return ErrCrossRestaurant }

// InvalidQuantityError indicates a negative quantity.
type InvalidQuantityError struct {
	DishID   int64
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity %d for dish %d must not be negative", e.Quantity, e.DishID)
}

// Tx gives exclusive access to the carts locked by Repository.Update.
type Tx interface {
	Lines(ctx context.Context, o owner.Owner) ([]Line, error)
	// Upsert creates the (owner, dish) line or sets its quantity. A nil
	// options payload keeps the stored one.
	Upsert(ctx context.Context, o owner.Owner, dishID int64, quantity int, options json.RawMessage) error
	// Delete removes the (owner, dish) line; deleting a missing line is a no-op.
	Delete(ctx context.Context, o owner.Owner, dishID int64) error
	// Clear removes every line of the owner.
	Clear(ctx context.Context, o owner.Owner) error
}

// Repository persists cart lines.
type Repository interface {
	// Lines returns the owner's lines, oldest first. Unknown owners have none.
	Lines(ctx context.Context, o owner.Owner) ([]Line, error)
	// Update runs fn in one transaction holding exclusive locks on the carts of
	// owners.
	Update(ctx context.Context, fn func(ctx context.Context, tx Tx) error, owners ...owner.Owner) error
}
