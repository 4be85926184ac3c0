package order

import (
	"context"

	"github.com/go-faster/errors"
)

// Tracking is the customer-facing view of an order.
type Tracking struct {
	Order    *Order
	Timeline Timeline
}

// Service serves order tracking and fulfillment status changes.
type Service struct {
	orders Repository
}

// NewService creates an order Service.
func NewService(orders Repository) *Service {
	return &Service{orders: orders}
}

// Track returns the order with its timeline. Orders of other accounts are
// reported as ErrNotFound.
func (s *Service) Track(ctx context.Context, accountID int64, number string) (*Tracking, error) {
	o, err := s.orders.GetByNumber(ctx, number)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %s", number)
	}
	if o.AccountID != accountID {
		return nil, ErrNotFound
	}
	return &Tracking{
		Order:    o,
		Timeline: BuildTimeline(o.Status, o.CancelledFrom),
	}, nil
}

// Advance moves the order to next. The update is guarded on the status read
// here, so a concurrent change makes it fail with ErrInvalidTransition.
func (s *Service) Advance(ctx context.Context, number string, next Status) (*Order, error) {
	o, err := s.orders.GetByNumber(ctx, number)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %s", number)
	}
	if !o.Status.CanTransition(next) {
		return nil, errors.Wrapf(ErrInvalidTransition, "%s -> %s", o.Status, next)
	}

	updated, err := s.orders.UpdateStatus(ctx, number, o.Status, next)
	if err != nil {
		return nil, errors.Wrapf(err, "update order %s", number)
	}
	return updated, nil
}
