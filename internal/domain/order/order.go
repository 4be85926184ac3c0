package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when an order does not exist or is not visible to
// the caller.
var ErrNotFound = errors.New("order not found")

// ItemType tells which catalog entity an order item references.
type ItemType string

const (
	ItemDish  ItemType = "dish"
	ItemCombo ItemType = "combo"
)

// PaymentStatus of an order or invoice payment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// InvoiceStatusIssued is the status of every invoice created at checkout.
const InvoiceStatusIssued = "issued"

// Order is the durable record of a placed checkout.
type Order struct {
	ID                  string          `json:"id"`
	OrderNumber         string          `json:"orderNumber"`
	AccountID           int64           `json:"accountId"`
	CustomerID          string          `json:"customerId"`
	RestaurantID        int64           `json:"restaurantId"`
	DeliveryAddressID   int64           `json:"deliveryAddressId"`
	Status              Status          `json:"status"`
	CancelledFrom       Status          `json:"cancelledFrom,omitempty"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	TaxAmount           decimal.Decimal `json:"taxAmount"`
	DeliveryFee         decimal.Decimal `json:"deliveryFee"`
	DiscountAmount      decimal.Decimal `json:"discountAmount"`
	TotalAmount         decimal.Decimal `json:"totalAmount"`
	PaymentMethodCode   string          `json:"paymentMethodCode"`
	PaymentStatus       PaymentStatus   `json:"paymentStatus"`
	PaymentReference    string          `json:"paymentReference"`
	SpecialInstructions string          `json:"specialInstructions,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
}

// Item is one frozen cart line of an order. UnitPrice is a snapshot taken at
// checkout and never changes afterwards.
type Item struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"orderId"`
	ItemType    ItemType        `json:"itemType"`
	ReferenceID int64           `json:"referenceId"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

// Invoice mirrors the order totals under its own number.
type Invoice struct {
	ID             string          `json:"id"`
	InvoiceNumber  string          `json:"invoiceNumber"`
	OrderID        string          `json:"orderId"`
	CustomerID     string          `json:"customerId"`
	Status         string          `json:"status"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	DeliveryFee    decimal.Decimal `json:"deliveryFee"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// InvoiceDetail mirrors one order item on the invoice.
type InvoiceDetail struct {
	ID          string          `json:"id"`
	InvoiceID   string          `json:"invoiceId"`
	OrderItemID string          `json:"orderItemId"`
	ItemType    ItemType        `json:"itemType"`
	ReferenceID int64           `json:"referenceId"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

// InvoiceDiscount is the per-detail discount row. Line discounts are not
// computed yet, so every row carries zero.
type InvoiceDiscount struct {
	ID              string          `json:"id"`
	InvoiceDetailID string          `json:"invoiceDetailId"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
}

// InvoicePayment records the single settlement of an invoice.
type InvoicePayment struct {
	ID                string          `json:"id"`
	InvoiceID         string          `json:"invoiceId"`
	PaymentMethodCode string          `json:"paymentMethodCode"`
	AmountPaid        decimal.Decimal `json:"amountPaid"`
	Reference         string          `json:"reference"`
	Status            PaymentStatus   `json:"status"`
	PaidAt            time.Time       `json:"paidAt"`
}

// Repository provides order reads and fulfillment status updates. Orders are
// created only by the checkout transaction.
type Repository interface {
	// GetByNumber returns the order with the given number.
	GetByNumber(ctx context.Context, number string) (*Order, error)
	// UpdateStatus moves the order from one status to another only if it is
	// still in from. It returns ErrInvalidTransition when it is not.
	UpdateStatus(ctx context.Context, number string, from, to Status) (*Order, error)
}
