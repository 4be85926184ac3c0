// Package checkout converts an account's cart into a placed order with its
// invoice and payment, all in one storage transaction.
package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/domain/owner"
)

var (
	ErrAuthenticationRequired   = errors.New("authentication required")
	ErrAddressNotFound          = errors.New("address not found")
	ErrAddressNotOwned          = errors.New("address does not belong to account")
	ErrPaymentMethodUnavailable = errors.New("payment method unavailable")
	ErrEmptyCart                = errors.New("cart is empty")
	ErrNoSelection              = errors.New("no checkout selection")
	ErrNoConfirmation           = errors.New("no confirmation")

	// ErrDuplicateIdentifier is returned by Tx inserts when the order or
	// invoice number was taken concurrently. The number is regenerated.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
)

// Address is a delivery address of an account.
type Address struct {
	ID         int64  `json:"id"`
	AccountID  int64  `json:"accountId"`
	Label      string `json:"label"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// PaymentMethod is an entry of the payment method catalog.
type PaymentMethod struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Category string `json:"category"`
	Active   bool   `json:"active"`
}

// Restaurant is the denormalized restaurant shown on a confirmation.
type Restaurant struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Selection is the payment-step choice of a browsing session.
type Selection struct {
	Address       Address       `json:"address"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Notes         string        `json:"notes,omitempty"`
	SavedAt       time.Time     `json:"savedAt"`
}

// Confirmation is everything shown after a successful placement.
type Confirmation struct {
	Order         order.Order          `json:"order"`
	Restaurant    Restaurant           `json:"restaurant"`
	Address       Address              `json:"address"`
	PaymentMethod PaymentMethod        `json:"paymentMethod"`
	Items         []order.Item         `json:"items"`
	Invoice       order.Invoice        `json:"invoice"`
	Payment       order.InvoicePayment `json:"payment"`
}

// Customer is the billing profile of an account.
type Customer struct {
	ID        string
	AccountID int64
	FirstName string
	LastName  string
	Email     string
}

// Tx is the set of writes of one checkout transaction.
type Tx interface {
	CartLines(ctx context.Context, accountID int64) ([]cart.Line, error)
	ClearCart(ctx context.Context, accountID int64) error

	// EnsureCustomer sets c.ID to the account's existing billing profile or
	// creates one from c.
	EnsureCustomer(ctx context.Context, c *Customer) error

	OrderNumberExists(ctx context.Context, number string) (bool, error)
	InvoiceNumberExists(ctx context.Context, number string) (bool, error)

	// InsertOrder and InsertInvoice return ErrDuplicateIdentifier when the
	// number is already taken; the transaction stays usable.
	InsertOrder(ctx context.Context, o *order.Order) error
	InsertInvoice(ctx context.Context, inv *order.Invoice) error
	InsertItem(ctx context.Context, it *order.Item) error
	InsertInvoiceDetail(ctx context.Context, d *order.InvoiceDetail) error
	InsertInvoiceDiscount(ctx context.Context, d *order.InvoiceDiscount) error
	InsertInvoicePayment(ctx context.Context, p *order.InvoicePayment) error
}

// Store runs checkout transactions.
type Store interface {
	// InTx runs fn in one serializable transaction, committing only if fn
	// returns nil.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Sessions is the browsing-session scoped storage of selections and
// confirmations.
type Sessions interface {
	// Selection returns ErrNoSelection when none was saved.
	Selection(ctx context.Context, sessionID string) (*Selection, error)
	SaveSelection(ctx context.Context, sessionID string, sel Selection) error
	// Confirmation returns ErrNoConfirmation when none was saved.
	Confirmation(ctx context.Context, sessionID string) (*Confirmation, error)
	SaveConfirmation(ctx context.Context, sessionID string, c Confirmation) error
}

// AddressLookup returns ErrAddressNotFound for unknown ids.
type AddressLookup interface {
	GetAddress(ctx context.Context, id int64) (*Address, error)
}

// PaymentMethodLookup returns ErrPaymentMethodUnavailable for unknown ids.
type PaymentMethodLookup interface {
	GetPaymentMethod(ctx context.Context, id int64) (*PaymentMethod, error)
}

// CartReader reads an owner's cart.
type CartReader interface {
	Lines(ctx context.Context, o owner.Owner) ([]cart.Line, error)
}
