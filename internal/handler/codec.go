package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/checkout"
	"github.com/xenking/kart-checkout/internal/domain/order"
)

const maxBodySize = 1 << 20

// badRequestError marks malformed request bodies.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return "invalid request body: " + e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

// decodeObject reads the request body as a JSON object, calling fn for each
// field. An empty body is accepted when optional is set.
func decodeObject(r *http.Request, optional bool, fn func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodySize))
	if err != nil {
		return &badRequestError{err: err}
	}
	if len(body) == 0 {
		if optional {
			return nil
		}
		return &badRequestError{err: errors.New("empty body")}
	}
	d := jx.DecodeBytes(body)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		return fn(d, string(key))
	}); err != nil {
		return &badRequestError{err: err}
	}
	return nil
}

// decodeRaw returns the next value verbatim, nil for JSON null.
func decodeRaw(d *jx.Decoder) (json.RawMessage, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	raw, err := d.Raw()
	if err != nil {
		return nil, err
	}
	return json.RawMessage(append([]byte(nil), raw...)), nil
}

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// money encodes amounts as exact JSON numbers with two decimals.
func money(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}

func encodeCart(e *jx.Encoder, lines []cart.Line) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range lines {
		e.ObjStart()
		e.Field("id", func(e *jx.Encoder) { e.Str(l.ID) })
		e.Field("dishId", func(e *jx.Encoder) { e.Int64(l.DishID) })
		e.Field("dishName", func(e *jx.Encoder) { e.Str(l.DishName) })
		e.Field("restaurantId", func(e *jx.Encoder) { e.Int64(l.RestaurantID) })
		e.Field("restaurantName", func(e *jx.Encoder) { e.Str(l.RestaurantName) })
		e.Field("unitPrice", func(e *jx.Encoder) { money(e, l.UnitPrice) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
		e.Field("available", func(e *jx.Encoder) { e.Bool(!l.Unavailable) })
		e.Field("lineTotal", func(e *jx.Encoder) {
			money(e, l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		})
		if len(l.Options) > 0 {
			e.Field("options", func(e *jx.Encoder) { e.Raw(l.Options) })
		}
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeTimeline(e *jx.Encoder, t order.Timeline) {
	e.ObjStart()
	e.Field("status", func(e *jx.Encoder) { e.Str(string(t.Status)) })
	e.Field("progress", func(e *jx.Encoder) { e.Int(t.Progress) })
	e.FieldStart("milestones")
	e.ArrStart()
	for _, m := range t.Milestones {
		e.ObjStart()
		e.Field("key", func(e *jx.Encoder) { e.Str(m.Key) })
		e.Field("label", func(e *jx.Encoder) { e.Str(m.Label) })
		e.Field("state", func(e *jx.Encoder) { e.Str(string(m.State)) })
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeOrderSummary(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.Field("orderNumber", func(e *jx.Encoder) { e.Str(o.OrderNumber) })
	e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
	if o.CancelledFrom != "" {
		e.Field("cancelledFrom", func(e *jx.Encoder) { e.Str(string(o.CancelledFrom)) })
	}
	e.Field("restaurantId", func(e *jx.Encoder) { e.Int64(o.RestaurantID) })
	e.Field("totalAmount", func(e *jx.Encoder) { money(e, o.TotalAmount) })
	e.Field("paymentStatus", func(e *jx.Encoder) { e.Str(string(o.PaymentStatus)) })
	e.Field("createdAt", func(e *jx.Encoder) { timestamp(e, o.CreatedAt) })
	e.ObjEnd()
}

func timestamp(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeSelection(e *jx.Encoder, sel *checkout.Selection) {
	e.ObjStart()
	e.Field("address", func(e *jx.Encoder) { encodeAddress(e, &sel.Address) })
	e.Field("paymentMethod", func(e *jx.Encoder) { encodePaymentMethod(e, &sel.PaymentMethod) })
	if sel.Notes != "" {
		e.Field("notes", func(e *jx.Encoder) { e.Str(sel.Notes) })
	}
	e.Field("savedAt", func(e *jx.Encoder) { timestamp(e, sel.SavedAt) })
	e.ObjEnd()
}

func encodeConfirmation(e *jx.Encoder, c *checkout.Confirmation) {
	e.ObjStart()
	e.Field("order", func(e *jx.Encoder) { encodeOrder(e, &c.Order) })
	e.Field("restaurant", func(e *jx.Encoder) {
		e.ObjStart()
		e.Field("id", func(e *jx.Encoder) { e.Int64(c.Restaurant.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(c.Restaurant.Name) })
		e.ObjEnd()
	})
	e.Field("address", func(e *jx.Encoder) { encodeAddress(e, &c.Address) })
	e.Field("paymentMethod", func(e *jx.Encoder) { encodePaymentMethod(e, &c.PaymentMethod) })
	e.FieldStart("items")
	e.ArrStart()
	for i := range c.Items {
		encodeItem(e, &c.Items[i])
	}
	e.ArrEnd()
	e.Field("invoice", func(e *jx.Encoder) { encodeInvoice(e, &c.Invoice) })
	e.Field("payment", func(e *jx.Encoder) { encodePayment(e, &c.Payment) })
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
	e.Field("orderNumber", func(e *jx.Encoder) { e.Str(o.OrderNumber) })
	e.Field("accountId", func(e *jx.Encoder) { e.Int64(o.AccountID) })
	e.Field("customerId", func(e *jx.Encoder) { e.Str(o.CustomerID) })
	e.Field("restaurantId", func(e *jx.Encoder) { e.Int64(o.RestaurantID) })
	e.Field("deliveryAddressId", func(e *jx.Encoder) { e.Int64(o.DeliveryAddressID) })
	e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
	if o.CancelledFrom != "" {
		e.Field("cancelledFrom", func(e *jx.Encoder) { e.Str(string(o.CancelledFrom)) })
	}
	e.Field("subtotal", func(e *jx.Encoder) { money(e, o.Subtotal) })
	e.Field("taxAmount", func(e *jx.Encoder) { money(e, o.TaxAmount) })
	e.Field("deliveryFee", func(e *jx.Encoder) { money(e, o.DeliveryFee) })
	e.Field("discountAmount", func(e *jx.Encoder) { money(e, o.DiscountAmount) })
	e.Field("totalAmount", func(e *jx.Encoder) { money(e, o.TotalAmount) })
	e.Field("paymentMethodCode", func(e *jx.Encoder) { e.Str(o.PaymentMethodCode) })
	e.Field("paymentStatus", func(e *jx.Encoder) { e.Str(string(o.PaymentStatus)) })
	e.Field("paymentReference", func(e *jx.Encoder) { e.Str(o.PaymentReference) })
	if o.SpecialInstructions != "" {
		e.Field("specialInstructions", func(e *jx.Encoder) { e.Str(o.SpecialInstructions) })
	}
	e.Field("createdAt", func(e *jx.Encoder) { timestamp(e, o.CreatedAt) })
	e.ObjEnd()
}

func encodeAddress(e *jx.Encoder, a *checkout.Address) {
	e.ObjStart()
	e.Field("id", func(e *jx.Encoder) { e.Int64(a.ID) })
	e.Field("accountId", func(e *jx.Encoder) { e.Int64(a.AccountID) })
	e.Field("label", func(e *jx.Encoder) { e.Str(a.Label) })
	e.Field("line1", func(e *jx.Encoder) { e.Str(a.Line1) })
	if a.Line2 != "" {
		e.Field("line2", func(e *jx.Encoder) { e.Str(a.Line2) })
	}
	e.Field("city", func(e *jx.Encoder) { e.Str(a.City) })
	if a.PostalCode != "" {
		e.Field("postalCode", func(e *jx.Encoder) { e.Str(a.PostalCode) })
	}
	if a.Phone != "" {
		e.Field("phone", func(e *jx.Encoder) { e.Str(a.Phone) })
	}
	e.ObjEnd()
}

func encodePaymentMethod(e *jx.Encoder, pm *checkout.PaymentMethod) {
	e.ObjStart()
	e.Field("id", func(e *jx.Encoder) { e.Int64(pm.ID) })
	e.Field("name", func(e *jx.Encoder) { e.Str(pm.Name) })
	e.Field("code", func(e *jx.Encoder) { e.Str(pm.Code) })
	e.Field("category", func(e *jx.Encoder) { e.Str(pm.Category) })
	e.Field("active", func(e *jx.Encoder) { e.Bool(pm.Active) })
	e.ObjEnd()
}

func encodeItem(e *jx.Encoder, it *order.Item) {
	e.ObjStart()
	e.Field("id", func(e *jx.Encoder) { e.Str(it.ID) })
	e.Field("orderId", func(e *jx.Encoder) { e.Str(it.OrderID) })
	e.Field("itemType", func(e *jx.Encoder) { e.Str(string(it.ItemType)) })
	e.Field("referenceId", func(e *jx.Encoder) { e.Int64(it.ReferenceID) })
	e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
	e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
	e.Field("unitPrice", func(e *jx.Encoder) { money(e, it.UnitPrice) })
	e.Field("totalPrice", func(e *jx.Encoder) { money(e, it.TotalPrice) })
	e.ObjEnd()
}

func encodeInvoice(e *jx.Encoder, inv *order.Invoice) {
	e.ObjStart()
	e.Field("id", func(e *jx.Encoder) { e.Str(inv.ID) })
	e.Field("invoiceNumber", func(e *jx.Encoder) { e.Str(inv.InvoiceNumber) })
	e.Field("orderId", func(e *jx.Encoder) { e.Str(inv.OrderID) })
	e.Field("customerId", func(e *jx.Encoder) { e.Str(inv.CustomerID) })
	e.Field("status", func(e *jx.Encoder) { e.Str(inv.Status) })
	e.Field("subtotal", func(e *jx.Encoder) { money(e, inv.Subtotal) })
	e.Field("taxAmount", func(e *jx.Encoder) { money(e, inv.TaxAmount) })
	e.Field("deliveryFee", func(e *jx.Encoder) { money(e, inv.DeliveryFee) })
	e.Field("discountAmount", func(e *jx.Encoder) { money(e, inv.DiscountAmount) })
	e.Field("totalAmount", func(e *jx.Encoder) { money(e, inv.TotalAmount) })
	e.Field("createdAt", func(e *jx.Encoder) { timestamp(e, inv.CreatedAt) })
	e.ObjEnd()
}

func encodePayment(e *jx.Encoder, p *order.InvoicePayment) {
	e.ObjStart()
	e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
	e.Field("invoiceId", func(e *jx.Encoder) { e.Str(p.InvoiceID) })
	e.Field("paymentMethodCode", func(e *jx.Encoder) { e.Str(p.PaymentMethodCode) })
	e.Field("amountPaid", func(e *jx.Encoder) { money(e, p.AmountPaid) })
	e.Field("reference", func(e *jx.Encoder) { e.Str(p.Reference) })
	e.Field("status", func(e *jx.Encoder) { e.Str(string(p.Status)) })
	e.Field("paidAt", func(e *jx.Encoder) { timestamp(e, p.PaidAt) })
	e.ObjEnd()
}
