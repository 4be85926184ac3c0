package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-checkout/internal/domain/auth"
	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/catalog"
	"github.com/xenking/kart-checkout/internal/domain/ident"
	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/domain/owner"
	"github.com/xenking/kart-checkout/internal/domain/pricing"
)

// ErrSessionRequired is returned when a session-scoped operation has no
// browsing session id.
var ErrSessionRequired = errors.New("browsing session required")

const (
	instrumentationName = "github.com/xenking/kart-checkout/internal/domain/checkout"
	paymentRefLetters   = 4
	noDiscount          = "No discount"
)

// PlaceRequest is a checkout attempt. Zero AddressID and PaymentMethodID fall
// back to the session's saved selection.
type PlaceRequest struct {
	Account         *auth.Account
	SessionID       string
	AddressID       int64
	PaymentMethodID int64
	Notes           string
}

// Service orchestrates checkout.
type Service struct {
	store     Store
	sessions  Sessions
	addresses AddressLookup
	payments  PaymentMethodLookup
	carts     CartReader

	calc pricing.Calculator
	ids  *ident.Generator
	now  func() time.Time

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	tracer     trace.Tracer
	placed     metric.Int64Counter
	failures   metric.Int64Counter
	collisions metric.Int64Counter
}

// Option configures a Service.
type Option func(*Service)

// WithCalculator sets the totals calculator.
func WithCalculator(c pricing.Calculator) Option {
	return func(s *Service) { s.calc = c }
}

// WithGenerator sets the order and invoice number generator.
func WithGenerator(g *ident.Generator) Option {
	return func(s *Service) { s.ids = g }
}

// WithClock sets the clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// NewService creates a checkout Service.
func NewService(
	store Store,
	sessions Sessions,
	addresses AddressLookup,
	payments PaymentMethodLookup,
	carts CartReader,
	opts ...Option,
) (*Service, error) {
	s := &Service{
		store:     store,
		sessions:  sessions,
		addresses: addresses,
		payments:  payments,
		carts:     carts,
		calc:      pricing.NewCalculator(pricing.DefaultTaxRate, pricing.DefaultDeliveryFee),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.ids == nil {
		s.ids = ident.NewGenerator(ident.WithClock(s.now))
	}
	if s.tracerProvider == nil {
		s.tracerProvider = otel.GetTracerProvider()
	}
	if s.meterProvider == nil {
		s.meterProvider = otel.GetMeterProvider()
	}

	s.tracer = s.tracerProvider.Tracer(instrumentationName)
	meter := s.meterProvider.Meter(instrumentationName)

	var err error
	if s.placed, err = meter.Int64Counter("checkout.orders.placed",
		metric.WithDescription("Orders placed"),
	); err != nil {
		return nil, errors.Wrap(err, "placed counter")
	}
	if s.failures, err = meter.Int64Counter("checkout.failures",
		metric.WithDescription("Failed checkout attempts by reason"),
	); err != nil {
		return nil, errors.Wrap(err, "failures counter")
	}
	if s.collisions, err = meter.Int64Counter("checkout.identifier.collisions",
		metric.WithDescription("Order and invoice number collisions"),
	); err != nil {
		return nil, errors.Wrap(err, "collisions counter")
	}
	return s, nil
}

// Place converts the account's cart into an order, invoice and payment. The
// confirmation is cached against the browsing session when one is given.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (*Confirmation, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Place")
	defer span.End()

	c, err := s.place(ctx, req)
	if err != nil {
		reason := failureReason(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		s.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
		return nil, err
	}

	span.SetAttributes(attribute.String("checkout.order_number", c.Order.OrderNumber))
	s.placed.Add(ctx, 1)
	return c, nil
}

func (s *Service) place(ctx context.Context, req PlaceRequest) (*Confirmation, error) {
	if req.Account == nil {
		return nil, ErrAuthenticationRequired
	}
	lg := zctx.From(ctx)

	addressID, paymentMethodID, notes := req.AddressID, req.PaymentMethodID, req.Notes
	if (addressID == 0 || paymentMethodID == 0) && req.SessionID != "" {
		sel, err := s.sessions.Selection(ctx, req.SessionID)
		switch {
		case errors.Is(err, ErrNoSelection):
		case err != nil:
			return nil, errors.Wrap(err, "get selection")
		default:
			if addressID == 0 {
				addressID = sel.Address.ID
			}
			if paymentMethodID == 0 {
				paymentMethodID = sel.PaymentMethod.ID
			}
			if notes == "" {
				notes = sel.Notes
			}
		}
	}

	addr, pm, err := s.preconditions(ctx, req.Account.ID, addressID, paymentMethodID, true)
	if err != nil {
		return nil, err
	}

	var c *Confirmation
	if err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		c, err = s.execute(ctx, tx, req.Account, addr, pm, notes)
		return err
	}); err != nil {
		return nil, errors.Wrap(err, "checkout transaction")
	}

	lg.Info("Order placed",
		zap.String("order_number", c.Order.OrderNumber),
		zap.String("invoice_number", c.Invoice.InvoiceNumber),
		zap.Int64("account_id", req.Account.ID),
		zap.Stringer("total", c.Order.TotalAmount),
		zap.Int("items", len(c.Items)),
	)

	if req.SessionID != "" {
		if err := s.sessions.SaveConfirmation(ctx, req.SessionID, *c); err != nil {
			// The order is committed; only the cached view is lost.
			lg.Warn("Cache confirmation", zap.Error(err))
		}
	}
	return c, nil
}

// preconditions loads the address, the payment method and, when checkCart is
// set, the cart concurrently, then validates them in that order.
func (s *Service) preconditions(
	ctx context.Context,
	accountID, addressID, paymentMethodID int64,
	checkCart bool,
) (*Address, *PaymentMethod, error) {
	var (
		addr    *Address
		pm      *PaymentMethod
		lines   []cart.Line
		addrErr error
		pmErr   error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if addressID == 0 {
			addrErr = ErrAddressNotFound
			return nil
		}
		a, err := s.addresses.GetAddress(gctx, addressID)
		switch {
		case errors.Is(err, ErrAddressNotFound):
			addrErr = err
		case err != nil:
			return errors.Wrap(err, "get address")
		default:
			addr = a
		}
		return nil
	})
	g.Go(func() error {
		if paymentMethodID == 0 {
			pmErr = ErrPaymentMethodUnavailable
			return nil
		}
		p, err := s.payments.GetPaymentMethod(gctx, paymentMethodID)
		switch {
		case errors.Is(err, ErrPaymentMethodUnavailable):
			pmErr = err
		case err != nil:
			return errors.Wrap(err, "get payment method")
		default:
			pm = p
		}
		return nil
	})
	if checkCart {
		g.Go(func() error {
			l, err := s.carts.Lines(gctx, owner.Account(accountID))
			if err != nil {
				return errors.Wrap(err, "get cart")
			}
			lines = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	switch {
	case addrErr != nil:
		return nil, nil, addrErr
	case addr.AccountID != accountID:
		return nil, nil, ErrAddressNotOwned
	case pmErr != nil:
		return nil, nil, pmErr
	case !pm.Active:
		return nil, nil, ErrPaymentMethodUnavailable
	case checkCart && len(lines) == 0:
		return nil, nil, ErrEmptyCart
	}
	return addr, pm, nil
}

func (s *Service) execute(
	ctx context.Context,
	tx Tx,
	acc *auth.Account,
	addr *Address,
	pm *PaymentMethod,
	notes string,
) (*Confirmation, error) {
	lines, err := tx.CartLines(ctx, acc.ID)
	if err != nil {
		return nil, errors.Wrap(err, "read cart")
	}
	// The cart may have been emptied by a concurrent checkout.
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	for _, l := range lines {
		if l.Unavailable {
			return nil, errors.Wrapf(catalog.ErrDishNotFound, "dish %d", l.DishID)
		}
	}
	totals := s.calc.Compute(cart.PricingLines(lines))

	first, last := SplitName(acc.DisplayName)
	cust := &Customer{AccountID: acc.ID, FirstName: first, LastName: last, Email: acc.Email}
	if err := tx.EnsureCustomer(ctx, cust); err != nil {
		return nil, errors.Wrap(err, "ensure customer")
	}

	now := s.now()
	o := &order.Order{
		ID:                  uuid.NewString(),
		AccountID:           acc.ID,
		CustomerID:          cust.ID,
		RestaurantID:        lines[0].RestaurantID,
		DeliveryAddressID:   addr.ID,
		Status:              order.StatusPending,
		Subtotal:            totals.Subtotal,
		TaxAmount:           totals.Tax,
		DeliveryFee:         totals.DeliveryFee,
		DiscountAmount:      totals.Discount,
		TotalAmount:         totals.Total,
		PaymentMethodCode:   pm.Code,
		PaymentStatus:       order.PaymentPaid,
		SpecialInstructions: notes,
		CreatedAt:           now,
	}
	if err := s.issue(ctx, ident.PrefixOrder, tx.OrderNumberExists, func(number string) error {
		o.OrderNumber = number
		o.PaymentReference = number + "-" + s.ids.Letters(paymentRefLetters)
		return tx.InsertOrder(ctx, o)
	}); err != nil {
		return nil, errors.Wrap(err, "insert order")
	}

	inv := &order.Invoice{
		ID:             uuid.NewString(),
		OrderID:        o.ID,
		CustomerID:     cust.ID,
		Status:         order.InvoiceStatusIssued,
		Subtotal:       totals.Subtotal,
		TaxAmount:      totals.Tax,
		DeliveryFee:    totals.DeliveryFee,
		DiscountAmount: totals.Discount,
		TotalAmount:    totals.Total,
		CreatedAt:      now,
	}
	if err := s.issue(ctx, ident.PrefixInvoice, tx.InvoiceNumberExists, func(number string) error {
		inv.InvoiceNumber = number
		return tx.InsertInvoice(ctx, inv)
	}); err != nil {
		return nil, errors.Wrap(err, "insert invoice")
	}

	items := make([]order.Item, 0, len(lines))
	for _, l := range lines {
		lineTotal := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
		it := order.Item{
			ID:          uuid.NewString(),
			OrderID:     o.ID,
			ItemType:    order.ItemDish,
			ReferenceID: l.DishID,
			Name:        l.DishName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TotalPrice:  lineTotal,
		}
		if err := tx.InsertItem(ctx, &it); err != nil {
			return nil, errors.Wrapf(err, "insert item for dish %d", l.DishID)
		}
		detail := order.InvoiceDetail{
			ID:          uuid.NewString(),
			InvoiceID:   inv.ID,
			OrderItemID: it.ID,
			ItemType:    it.ItemType,
			ReferenceID: it.ReferenceID,
			Description: it.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		}
		if err := tx.InsertInvoiceDetail(ctx, &detail); err != nil {
			return nil, errors.Wrapf(err, "insert invoice detail for dish %d", l.DishID)
		}
		if err := tx.InsertInvoiceDiscount(ctx, &order.InvoiceDiscount{
			ID:              uuid.NewString(),
			InvoiceDetailID: detail.ID,
			Amount:          decimal.Zero,
			Description:     noDiscount,
		}); err != nil {
			return nil, errors.Wrapf(err, "insert invoice discount for dish %d", l.DishID)
		}
		items = append(items, it)
	}

	payment := order.InvoicePayment{
		ID:                uuid.NewString(),
		InvoiceID:         inv.ID,
		PaymentMethodCode: pm.Code,
		AmountPaid:        totals.Total,
		Reference:         o.PaymentReference,
		Status:            order.PaymentPaid,
		PaidAt:            now,
	}
	if err := tx.InsertInvoicePayment(ctx, &payment); err != nil {
		return nil, errors.Wrap(err, "insert payment")
	}

	if err := tx.ClearCart(ctx, acc.ID); err != nil {
		return nil, errors.Wrap(err, "clear cart")
	}

	return &Confirmation{
		Order:         *o,
		Restaurant:    Restaurant{ID: lines[0].RestaurantID, Name: lines[0].RestaurantName},
		Address:       *addr,
		PaymentMethod: *pm,
		Items:         items,
		Invoice:       *inv,
		Payment:       payment,
	}, nil
}

// issue finds a free identifier and inserts it. A number taken between the
// uniqueness check and the insert triggers a new number. Both kinds of
// collision draw from the generator's single attempt budget.
func (s *Service) issue(
	ctx context.Context,
	prefix string,
	exists ident.ExistsFunc,
	insert func(number string) error,
) error {
	attrs := metric.WithAttributes(attribute.String("prefix", prefix))
	counted := func(ctx context.Context, candidate string) (bool, error) {
		taken, err := exists(ctx, candidate)
		if taken {
			s.collisions.Add(ctx, 1, attrs)
		}
		return taken, err
	}
	_, err := s.ids.Issue(ctx, prefix, counted, func(number string) error {
		err := insert(number)
		if errors.Is(err, ErrDuplicateIdentifier) {
			s.collisions.Add(ctx, 1, attrs)
			return ident.ErrTaken
		}
		return err
	})
	return err
}

// SaveSelection validates and stores the payment-step choice of a session,
// replacing any earlier one.
func (s *Service) SaveSelection(
	ctx context.Context,
	acc *auth.Account,
	sessionID string,
	addressID, paymentMethodID int64,
	notes string,
) (*Selection, error) {
	if acc == nil {
		return nil, ErrAuthenticationRequired
	}
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	addr, pm, err := s.preconditions(ctx, acc.ID, addressID, paymentMethodID, false)
	if err != nil {
		return nil, err
	}

	sel := Selection{
		Address:       *addr,
		PaymentMethod: *pm,
		Notes:         notes,
		SavedAt:       s.now(),
	}
	if err := s.sessions.SaveSelection(ctx, sessionID, sel); err != nil {
		return nil, errors.Wrap(err, "save selection")
	}
	return &sel, nil
}

// Selection returns the session's saved payment-step choice.
func (s *Service) Selection(ctx context.Context, sessionID string) (*Selection, error) {
	if sessionID == "" {
		return nil, ErrNoSelection
	}
	sel, err := s.sessions.Selection(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "get selection")
	}
	return sel, nil
}

// Confirmation returns the last confirmation cached for the session. It
// never touches orders.
func (s *Service) Confirmation(ctx context.Context, sessionID string) (*Confirmation, error) {
	if sessionID == "" {
		return nil, ErrNoConfirmation
	}
	c, err := s.sessions.Confirmation(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "get confirmation")
	}
	return c, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		return "authentication_required"
	case errors.Is(err, ErrAddressNotFound):
		return "address_not_found"
	case errors.Is(err, ErrAddressNotOwned):
		return "address_not_owned"
	case errors.Is(err, ErrPaymentMethodUnavailable):
		return "payment_method_unavailable"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, catalog.ErrDishNotFound):
		return "dish_unavailable"
	case errors.Is(err, ident.ErrExhausted):
		return "identifier_exhausted"
	default:
		return "transaction"
	}
}
