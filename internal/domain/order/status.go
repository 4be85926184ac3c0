// Package order holds the placed-order records and their fulfillment status.
package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ErrInvalidTransition is returned when a status change skips or reverses
// the fulfillment sequence.
var ErrInvalidTransition = errors.New("invalid order status transition")

// Status of an order in fulfillment.
type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPrepared       Status = "prepared"
	StatusOutForDelivery Status = "outfordelivery"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

var ranks = map[Status]int{
	StatusPending:        0,
	StatusConfirmed:      1,
	StatusPrepared:       2,
	StatusOutForDelivery: 3,
	StatusCompleted:      4,
	StatusCancelled:      -1,
}

// ParseStatus validates s.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := ranks[st]; !ok {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}

// Rank orders statuses for comparison: pending=0 through completed=4 and
// cancelled=-1. Unknown statuses rank below cancelled.
func (s Status) Rank() int {
	r, ok := ranks[s]
	if !ok {
		return -2
	}
	return r
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether an order in s may move to next: one step
// forward, or to cancelled from any non-terminal status.
func (s Status) CanTransition(next Status) bool {
	if s.Rank() < 0 || s.Terminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	return next.Rank() == s.Rank()+1
}
