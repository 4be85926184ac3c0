package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-checkout/internal/domain/checkout"
)

const (
	getAddressSQL = `SELECT id, account_id, label, line1, line2, city, postal_code, phone
		FROM addresses WHERE id = $1`

	getPaymentMethodSQL = `SELECT id, name, code, category, active
		FROM payment_methods WHERE id = $1`
)

var (
	_ checkout.AddressLookup       = (*AddressRepository)(nil)
	_ checkout.PaymentMethodLookup = (*PaymentMethodRepository)(nil)
)

// AddressRepository reads delivery addresses.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// GetAddress returns the address regardless of owner; ownership is checked
// by checkout.
func (r *AddressRepository) GetAddress(ctx context.Context, id int64) (*checkout.Address, error) {
	var a checkout.Address
	err := r.pool.QueryRow(ctx, getAddressSQL, id).Scan(
		&a.ID, &a.AccountID, &a.Label, &a.Line1, &a.Line2, &a.City, &a.PostalCode, &a.Phone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, checkout.ErrAddressNotFound
		}
		return nil, fmt.Errorf("getting address %d: %w", id, err)
	}
	return &a, nil
}

// PaymentMethodRepository reads the payment method catalog.
type PaymentMethodRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentMethodRepository returns a PaymentMethodRepository that uses the
// given pool.
func NewPaymentMethodRepository(pool *pgxpool.Pool) *PaymentMethodRepository {
	return &PaymentMethodRepository{pool: pool}
}

// GetPaymentMethod returns the method including inactive ones.
func (r *PaymentMethodRepository) GetPaymentMethod(ctx context.Context, id int64) (*checkout.PaymentMethod, error) {
	var p checkout.PaymentMethod
	err := r.pool.QueryRow(ctx, getPaymentMethodSQL, id).Scan(&p.ID, &p.Name, &p.Code, &p.Category, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, checkout.ErrPaymentMethodUnavailable
		}
		return nil, fmt.Errorf("getting payment method %d: %w", id, err)
	}
	return &p, nil
}
