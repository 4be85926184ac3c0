package cart

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-checkout/internal/domain/catalog"
	"github.com/xenking/kart-checkout/internal/domain/owner"
)

// ErrMergeOwners is returned when a merge is not from an anonymous cart into
// an account cart.
var ErrMergeOwners = errors.New("merge requires an anonymous source and an account target")

// Service is the cart store used by the HTTP layer and checkout.
type Service struct {
	repo   Repository
	dishes catalog.Repository
}

// NewService creates a cart Service.
func NewService(repo Repository, dishes catalog.Repository) *Service {
	return &Service{repo: repo, dishes: dishes}
}

// Lines returns the owner's cart. The zero owner has an empty cart.
func (s *Service) Lines(ctx context.Context, o owner.Owner) ([]Line, error) {
	if o.IsZero() {
		return []Line{}, nil
	}
	lines, err := s.repo.Lines(ctx, o)
	if err != nil {
		return nil, errors.Wrap(err, "get cart lines")
	}
	return lines, nil
}

// SetQuantity replaces the quantity of the dish in the owner's cart. Zero
// deletes the line, so zeroing a dish that is not in the cart is a no-op.
func (s *Service) SetQuantity(
	ctx context.Context,
	o owner.Owner,
	dishID int64,
	quantity int,
	options json.RawMessage,
) ([]Line, error) {
	if o.IsZero() {
		return nil, owner.ErrOwnerRequired
	}
	if quantity < 0 {
		return nil, &InvalidQuantityError{DishID: dishID, Quantity: quantity}
	}

	var dish *catalog.Dish
	if quantity > 0 {
		d, err := s.dishes.GetDish(ctx, dishID)
		if err != nil {
			return nil, errors.Wrapf(err, "get dish %d", dishID)
		}
		dish = d
	}

	var result []Line
	err := s.repo.Update(ctx, func(ctx context.Context, tx Tx) error {
		if dish == nil {
			if err := tx.Delete(ctx, o, dishID); err != nil {
				return errors.Wrap(err, "delete line")
			}
		} else {
			current, err := tx.Lines(ctx, o)
			if err != nil {
				return errors.Wrap(err, "lock cart")
			}
			if err := checkRestaurant(current, dish.RestaurantID); err != nil {
				return err
			}
			if err := tx.Upsert(ctx, o, dishID, quantity, options); err != nil {
				return errors.Wrap(err, "upsert line")
			}
		}

		lines, err := tx.Lines(ctx, o)
		if err != nil {
			return errors.Wrap(err, "reload cart")
		}
		result = lines
		return nil
	}, o)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Clear empties the owner's cart. Clearing an empty cart is a no-op.
func (s *Service) Clear(ctx context.Context, o owner.Owner) ([]Line, error) {
	if o.IsZero() {
		return []Line{}, nil
	}
	err := s.repo.Update(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Clear(ctx, o)
	}, o)
	if err != nil {
		return nil, errors.Wrap(err, "clear cart")
	}
	return []Line{}, nil
}

// Merge moves the anonymous cart into the account cart after sign-in. A dish
// present in both keeps the larger quantity. A merge that would mix
// restaurants fails and leaves both carts untouched.
func (s *Service) Merge(ctx context.Context, from, to owner.Owner) ([]Line, error) {
	if from.Kind() != owner.KindAnonymous || to.Kind() != owner.KindAccount {
		return nil, ErrMergeOwners
	}

	var result []Line
	err := s.repo.Update(ctx, func(ctx context.Context, tx Tx) error {
		src, err := tx.Lines(ctx, from)
		if err != nil {
			return errors.Wrap(err, "load anonymous cart")
		}
		dst, err := tx.Lines(ctx, to)
		if err != nil {
			return errors.Wrap(err, "load account cart")
		}

		if len(src) > 0 {
			if err := checkRestaurant(dst, src[0].RestaurantID); err != nil {
				return err
			}

			existing := make(map[int64]int, len(dst))
			for _, l := range dst {
				existing[l.DishID] = l.Quantity
			}
			for _, l := range src {
				qty := max(l.Quantity, existing[l.DishID])
				if err := tx.Upsert(ctx, to, l.DishID, qty, l.Options); err != nil {
					return errors.Wrapf(err, "merge dish %d", l.DishID)
				}
			}
			if err := tx.Clear(ctx, from); err != nil {
				return errors.Wrap(err, "clear anonymous cart")
			}

			if dst, err = tx.Lines(ctx, to); err != nil {
				return errors.Wrap(err, "reload account cart")
			}
		}

		result = dst
		return nil
	}, from, to)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func checkRestaurant(lines []Line, restaurantID int64) error {
	for _, l := range lines {
		if l.RestaurantID != restaurantID {
			return &CrossRestaurantError{
				CartRestaurantID: l.RestaurantID,
				DishRestaurantID: restaurantID,
			}
		}
	}
	return nil
}
