package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/checkout"
	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/domain/owner"
)

const (
	getCustomerSQL = `SELECT id FROM customers WHERE account_id = $1`

	insertCustomerSQL = `INSERT INTO customers (id, account_id, first_name, last_name, email)
		VALUES ($1, $2, $3, $4, $5)`

	orderNumberExistsSQL   = `SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)`
	invoiceNumberExistsSQL = `SELECT EXISTS (SELECT 1 FROM invoices WHERE invoice_number = $1)`

	insertOrderSQL = `INSERT INTO orders (id, order_number, account_id, customer_id, restaurant_id,
			delivery_address_id, status, subtotal, tax_amount, delivery_fee, discount_amount,
			total_amount, payment_method_code, payment_status, payment_reference,
			special_instructions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	insertInvoiceSQL = `INSERT INTO invoices (id, invoice_number, order_id, customer_id, status,
			subtotal, tax_amount, delivery_fee, discount_amount, total_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, item_type, reference_id, name,
			quantity, unit_price, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	insertInvoiceDetailSQL = `INSERT INTO invoice_details (id, invoice_id, order_item_id, item_type,
			reference_id, description, quantity, unit_price, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	insertInvoiceDiscountSQL = `INSERT INTO invoice_discounts (id, invoice_detail_id, amount, description)
		VALUES ($1, $2, $3, $4)`

	insertInvoicePaymentSQL = `INSERT INTO invoice_payments (id, invoice_id, payment_method_code,
			amount_paid, reference, status, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	// serializableAttempts bounds reruns of a checkout aborted by SQLSTATE
	// 40001, e.g. two transactions checking the same number.
	serializableAttempts = 3

	orderNumberConstraint   = "orders_order_number_key"
	invoiceNumberConstraint = "invoices_invoice_number_key"
)

var _ checkout.Store = (*CheckoutStore)(nil)

// CheckoutStore runs checkout transactions at serializable isolation.
type CheckoutStore struct {
	pool     *pgxpool.Pool
	registry *IdentifierRegistry
}

// NewCheckoutStore returns a CheckoutStore. A nil registry makes every
// identifier existence check hit the database.
func NewCheckoutStore(pool *pgxpool.Pool, registry *IdentifierRegistry) *CheckoutStore {
	return &CheckoutStore{pool: pool, registry: registry}
}

// InTx runs fn in a serializable transaction, rerunning it when PostgreSQL
// aborts the transaction with a serialization failure. Numbers of a committed
// transaction are recorded in the identifier registry.
func (s *CheckoutStore) InTx(ctx context.Context, fn func(ctx context.Context, tx checkout.Tx) error) error {
	var issued []string
	err := retrySerializable(ctx, serializableAttempts, func() error {
		return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
			t := &checkoutTx{tx: tx, registry: s.registry}
			if err := fn(ctx, t); err != nil {
				return err
			}
			issued = t.issued
			return nil
		})
	})
	if err != nil {
		return err
	}
	if s.registry != nil {
		for _, n := range issued {
			s.registry.Add(n)
		}
	}
	return nil
}

// checkoutTx implements checkout.Tx on a serializable transaction.
type checkoutTx struct {
	tx       pgx.Tx
	registry *IdentifierRegistry
	issued   []string
}

func (t *checkoutTx) CartLines(ctx context.Context, accountID int64) ([]cart.Line, error) {
	o := owner.Account(accountID)
	if err := lockOwners(ctx, t.tx, o); err != nil {
		return nil, err
	}
	return cartLines(ctx, t.tx, o)
}

func (t *checkoutTx) ClearCart(ctx context.Context, accountID int64) error {
	return clearCart(ctx, t.tx, owner.Account(accountID))
}

func (t *checkoutTx) EnsureCustomer(ctx context.Context, c *checkout.Customer) error {
	var id uuid.UUID
	err := t.tx.QueryRow(ctx, getCustomerSQL, c.AccountID).Scan(&id)
	switch {
	case err == nil:
		c.ID = id.String()
		return nil
	case !errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("getting customer of account %d: %w", c.AccountID, err)
	}

	id = uuid.New()
	if _, err := t.tx.Exec(ctx, insertCustomerSQL, id, c.AccountID, c.FirstName, c.LastName, c.Email); err != nil {
		return fmt.Errorf("creating customer of account %d: %w", c.AccountID, err)
	}
	c.ID = id.String()
	return nil
}

func (t *checkoutTx) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	return t.exists(ctx, orderNumberExistsSQL, number)
}

func (t *checkoutTx) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	return t.exists(ctx, invoiceNumberExistsSQL, number)
}

// exists skips the query for numbers the registry has never seen.
func (t *checkoutTx) exists(ctx context.Context, query, number string) (bool, error) {
	if t.registry != nil && !t.registry.MaybeContains(number) {
		return false, nil
	}
	var found bool
	if err := t.tx.QueryRow(ctx, query, number).Scan(&found); err != nil {
		return false, fmt.Errorf("checking %s: %w", number, err)
	}
	return found, nil
}

func (t *checkoutTx) InsertOrder(ctx context.Context, o *order.Order) error {
	err := t.insertNumbered(ctx, orderNumberConstraint, insertOrderSQL,
		o.ID, o.OrderNumber, o.AccountID, o.CustomerID, o.RestaurantID,
		o.DeliveryAddressID, o.Status, o.Subtotal, o.TaxAmount, o.DeliveryFee, o.DiscountAmount,
		o.TotalAmount, o.PaymentMethodCode, o.PaymentStatus, o.PaymentReference,
		o.SpecialInstructions, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting order %s: %w", o.OrderNumber, err)
	}
	t.issued = append(t.issued, o.OrderNumber)
	return nil
}

func (t *checkoutTx) InsertInvoice(ctx context.Context, inv *order.Invoice) error {
	err := t.insertNumbered(ctx, invoiceNumberConstraint, insertInvoiceSQL,
		inv.ID, inv.InvoiceNumber, inv.OrderID, inv.CustomerID, inv.Status,
		inv.Subtotal, inv.TaxAmount, inv.DeliveryFee, inv.DiscountAmount, inv.TotalAmount, inv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting invoice %s: %w", inv.InvoiceNumber, err)
	}
	t.issued = append(t.issued, inv.InvoiceNumber)
	return nil
}

// insertNumbered runs the insert inside a savepoint so a number collision
// rolls back only the insert and the transaction stays usable.
func (t *checkoutTx) insertNumbered(ctx context.Context, constraint, query string, args ...any) error {
	err := pgx.BeginFunc(ctx, t.tx, func(sp pgx.Tx) error {
		_, err := sp.Exec(ctx, query, args...)
		return err
	})
	if isUniqueViolation(err, constraint) {
		return checkout.ErrDuplicateIdentifier
	}
	return err
}

func (t *checkoutTx) InsertItem(ctx context.Context, it *order.Item) error {
	_, err := t.tx.Exec(ctx, insertOrderItemSQL,
		it.ID, it.OrderID, it.ItemType, it.ReferenceID, it.Name, it.Quantity, it.UnitPrice, it.TotalPrice,
	)
	if err != nil {
		return fmt.Errorf("inserting order item: %w", err)
	}
	return nil
}

func (t *checkoutTx) InsertInvoiceDetail(ctx context.Context, d *order.InvoiceDetail) error {
	_, err := t.tx.Exec(ctx, insertInvoiceDetailSQL,
		d.ID, d.InvoiceID, d.OrderItemID, d.ItemType, d.ReferenceID, d.Description,
		d.Quantity, d.UnitPrice, d.TotalPrice,
	)
	if err != nil {
		return fmt.Errorf("inserting invoice detail: %w", err)
	}
	return nil
}

func (t *checkoutTx) InsertInvoiceDiscount(ctx context.Context, d *order.InvoiceDiscount) error {
	_, err := t.tx.Exec(ctx, insertInvoiceDiscountSQL, d.ID, d.InvoiceDetailID, d.Amount, d.Description)
	if err != nil {
		return fmt.Errorf("inserting invoice discount: %w", err)
	}
	return nil
}

func (t *checkoutTx) InsertInvoicePayment(ctx context.Context, p *order.InvoicePayment) error {
	_, err := t.tx.Exec(ctx, insertInvoicePaymentSQL,
		p.ID, p.InvoiceID, p.PaymentMethodCode, p.AmountPaid, p.Reference, p.Status, p.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("inserting invoice payment: %w", err)
	}
	return nil
}
