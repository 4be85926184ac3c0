package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const listIssuedNumbersSQL = `SELECT order_number FROM orders
	UNION ALL
	SELECT invoice_number FROM invoices`

// IdentifierRegistry is a bloom filter of order and invoice numbers known to
// be taken. A negative answer skips the uniqueness query; numbers issued by
// other processes after warm-up are caught by the unique constraints.
type IdentifierRegistry struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewIdentifierRegistry sizes the filter for capacity numbers at the given
// false positive rate.
func NewIdentifierRegistry(capacity uint, fpRate float64) *IdentifierRegistry {
	return &IdentifierRegistry{filter: bloom.NewWithEstimates(capacity, fpRate)}
}

// Warm loads every stored number into the filter.
func (r *IdentifierRegistry) Warm(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	rows, err := pool.Query(ctx, listIssuedNumbersSQL)
	if err != nil {
		return 0, fmt.Errorf("listing issued numbers: %w", err)
	}
	numbers, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return 0, fmt.Errorf("listing issued numbers: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range numbers {
		r.filter.AddString(n)
	}
	return len(numbers), nil
}

// Add records a taken number.
func (r *IdentifierRegistry) Add(number string) {
	r.mu.Lock()
	r.filter.AddString(number)
	r.mu.Unlock()
}

// MaybeContains reports false only for numbers never added.
func (r *IdentifierRegistry) MaybeContains(number string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filter.TestString(number)
}
