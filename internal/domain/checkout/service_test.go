package checkout

import (
	"context"
	"errors"
	"maps"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-checkout/internal/domain/auth"
	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/catalog"
	"github.com/xenking/kart-checkout/internal/domain/ident"
	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/domain/owner"
)

var (
	errInjected = errors.New("injected failure")
	testNow     = time.Date(2025, 3, 9, 18, 30, 0, 0, time.UTC)
)

// memState is everything the fake store persists.
type memState struct {
	carts     map[int64][]cart.Line
	customers map[int64]Customer
	orders    []order.Order
	invoices  []order.Invoice
	items     []order.Item
	details   []order.InvoiceDetail
	discounts []order.InvoiceDiscount
	payments  []order.InvoicePayment
}

func (s memState) clone() memState {
	out := memState{
		carts:     make(map[int64][]cart.Line, len(s.carts)),
		customers: maps.Clone(s.customers),
		orders:    slices.Clone(s.orders),
		invoices:  slices.Clone(s.invoices),
		items:     slices.Clone(s.items),
		details:   slices.Clone(s.details),
		discounts: slices.Clone(s.discounts),
		payments:  slices.Clone(s.payments),
	}
	for k, v := range s.carts {
		out.carts[k] = slices.Clone(v)
	}
	return out
}

// memStore is a transactional in-memory Store. A failed transaction restores
// the snapshot taken at its start.
type memStore struct {
	state memState

	takenOrders   map[string]bool
	takenInvoices map[string]bool

	// failOn names the Tx method that fails with errInjected.
	failOn string
	// dupOrderInserts makes that many InsertOrder calls report a duplicate.
	dupOrderInserts int
	orderInserts    int
	commits         int
}

func newMemStore() *memStore {
	return &memStore{
		state: memState{
			carts:     map[int64][]cart.Line{},
			customers: map[int64]Customer{},
		},
		takenOrders:   map[string]bool{},
		takenInvoices: map[string]bool{},
	}
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	snapshot := m.state.clone()
	if err := fn(ctx, &memTx{m: m}); err != nil {
		m.state = snapshot
		return err
	}
	m.commits++
	for _, o := range m.state.orders {
		m.takenOrders[o.OrderNumber] = true
	}
	for _, inv := range m.state.invoices {
		m.takenInvoices[inv.InvoiceNumber] = true
	}
	return nil
}

// Lines implements CartReader.
func (m *memStore) Lines(_ context.Context, o owner.Owner) ([]cart.Line, error) {
	id, ok := o.AccountID()
	if !ok {
		return []cart.Line{}, nil
	}
	return slices.Clone(m.state.carts[id]), nil
}

type memTx struct {
	m *memStore
}

func (t *memTx) fail(op string) error {
	if t.m.failOn == op {
		return errInjected
	}
	return nil
}

func (t *memTx) CartLines(_ context.Context, accountID int64) ([]cart.Line, error) {
	if err := t.fail("CartLines"); err != nil {
		return nil, err
	}
	return slices.Clone(t.m.state.carts[accountID]), nil
}

func (t *memTx) ClearCart(_ context.Context, accountID int64) error {
	if err := t.fail("ClearCart"); err != nil {
		return err
	}
	delete(t.m.state.carts, accountID)
	return nil
}

func (t *memTx) EnsureCustomer(_ context.Context, c *Customer) error {
	if err := t.fail("EnsureCustomer"); err != nil {
		return err
	}
	if existing, ok := t.m.state.customers[c.AccountID]; ok {
		c.ID = existing.ID
		return nil
	}
	c.ID = "cust-" + c.FirstName
	t.m.state.customers[c.AccountID] = *c
	return nil
}

func (t *memTx) OrderNumberExists(_ context.Context, number string) (bool, error) {
	return t.m.takenOrders[number], nil
}

func (t *memTx) InvoiceNumberExists(_ context.Context, number string) (bool, error) {
	return t.m.takenInvoices[number], nil
}

func (t *memTx) InsertOrder(_ context.Context, o *order.Order) error {
	if err := t.fail("InsertOrder"); err != nil {
		return err
	}
	t.m.orderInserts++
	if t.m.orderInserts <= t.m.dupOrderInserts {
		return ErrDuplicateIdentifier
	}
	t.m.state.orders = append(t.m.state.orders, *o)
	return nil
}

func (t *memTx) InsertInvoice(_ context.Context, inv *order.Invoice) error {
	if err := t.fail("InsertInvoice"); err != nil {
		return err
	}
	t.m.state.invoices = append(t.m.state.invoices, *inv)
	return nil
}

func (t *memTx) InsertItem(_ context.Context, it *order.Item) error {
	if err := t.fail("InsertItem"); err != nil {
		return err
	}
	t.m.state.items = append(t.m.state.items, *it)
	return nil
}

func (t *memTx) InsertInvoiceDetail(_ context.Context, d *order.InvoiceDetail) error {
	if err := t.fail("InsertInvoiceDetail"); err != nil {
		return err
	}
	t.m.state.details = append(t.m.state.details, *d)
	return nil
}

func (t *memTx) InsertInvoiceDiscount(_ context.Context, d *order.InvoiceDiscount) error {
	if err := t.fail("InsertInvoiceDiscount"); err != nil {
		return err
	}
	t.m.state.discounts = append(t.m.state.discounts, *d)
	return nil
}

func (t *memTx) InsertInvoicePayment(_ context.Context, p *order.InvoicePayment) error {
	if err := t.fail("InsertInvoicePayment"); err != nil {
		return err
	}
	t.m.state.payments = append(t.m.state.payments, *p)
	return nil
}

type memSessions struct {
	selections    map[string]Selection
	confirmations map[string]Confirmation
	saveErr       error
}

func newMemSessions() *memSessions {
	return &memSessions{
		selections:    map[string]Selection{},
		confirmations: map[string]Confirmation{},
	}
}

func (s *memSessions) Selection(_ context.Context, id string) (*Selection, error) {
	sel, ok := s.selections[id]
	if !ok {
		return nil, ErrNoSelection
	}
	return &sel, nil
}

func (s *memSessions) SaveSelection(_ context.Context, id string, sel Selection) error {
	s.selections[id] = sel
	return nil
}

func (s *memSessions) Confirmation(_ context.Context, id string) (*Confirmation, error) {
	c, ok := s.confirmations[id]
	if !ok {
		return nil, ErrNoConfirmation
	}
	return &c, nil
}

func (s *memSessions) SaveConfirmation(_ context.Context, id string, c Confirmation) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.confirmations[id] = c
	return nil
}

type mockAddresses map[int64]Address

func (m mockAddresses) GetAddress(_ context.Context, id int64) (*Address, error) {
	a, ok := m[id]
	if !ok {
		return nil, ErrAddressNotFound
	}
	return &a, nil
}

type mockPayments map[int64]PaymentMethod

func (m mockPayments) GetPaymentMethod(_ context.Context, id int64) (*PaymentMethod, error) {
	p, ok := m[id]
	if !ok {
		return nil, ErrPaymentMethodUnavailable
	}
	return &p, nil
}

// seqRand returns a deterministic index sequence.
func seqRand() func(n int) int {
	i := 0
	return func(n int) int {
		i++
		return (i * 7) % n
	}
}

type fixture struct {
	store    *memStore
	sessions *memSessions
	svc      *Service
	account  *auth.Account
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store := newMemStore()
	sessions := newMemSessions()
	addresses := mockAddresses{
		10: {ID: 10, AccountID: 1, Label: "Home", Line1: "Av. Larco 123", City: "Lima"},
		20: {ID: 20, AccountID: 2, Label: "Office", Line1: "Jr. Union 5", City: "Lima"},
	}
	payments := mockPayments{
		1: {ID: 1, Name: "Card", Code: "CARD", Category: "card", Active: true},
		2: {ID: 2, Name: "Gift card", Code: "GIFT", Category: "voucher", Active: false},
	}

	opts = append([]Option{
		WithClock(func() time.Time { return testNow }),
		WithGenerator(ident.NewGenerator(ident.WithClock(func() time.Time { return testNow }))),
	}, opts...)
	svc, err := NewService(store, sessions, addresses, payments, store, opts...)
	require.NoError(t, err)

	store.state.carts[1] = []cart.Line{
		{ID: "l1", DishID: 1, DishName: "Lomo saltado", RestaurantID: 3, RestaurantName: "La Mar",
			UnitPrice: decimal.RequireFromString("5.00"), Quantity: 2},
		{ID: "l2", DishID: 2, DishName: "Causa", RestaurantID: 3, RestaurantName: "La Mar",
			UnitPrice: decimal.RequireFromString("3.25"), Quantity: 1},
	}

	return &fixture{
		store:    store,
		sessions: sessions,
		svc:      svc,
		account:  &auth.Account{ID: 1, DisplayName: "Ana Lucia Perez", Email: "ana@example.com"},
	}
}

func (f *fixture) request() PlaceRequest {
	return PlaceRequest{Account: f.account, SessionID: "sess-1", AddressID: 10, PaymentMethodID: 1}
}

func TestPlace_TwoLineScenario(t *testing.T) {
	f := newFixture(t)

	c, err := f.svc.Place(context.Background(), f.request())
	require.NoError(t, err)

	want := decimal.RequireFromString("23.14")
	assert.True(t, want.Equal(c.Order.TotalAmount), "order total %s", c.Order.TotalAmount)
	assert.True(t, want.Equal(c.Invoice.TotalAmount), "invoice total %s", c.Invoice.TotalAmount)
	assert.True(t, want.Equal(c.Payment.AmountPaid), "paid %s", c.Payment.AmountPaid)
	assert.True(t, decimal.RequireFromString("13.25").Equal(c.Order.Subtotal))
	assert.True(t, decimal.RequireFromString("2.39").Equal(c.Order.TaxAmount))
	assert.True(t, decimal.RequireFromString("7.50").Equal(c.Order.DeliveryFee))
	assert.True(t, c.Order.DiscountAmount.IsZero())

	assert.Equal(t, order.StatusPending, c.Order.Status)
	assert.Equal(t, order.PaymentPaid, c.Order.PaymentStatus)
	assert.Equal(t, order.InvoiceStatusIssued, c.Invoice.Status)
	assert.Equal(t, order.PaymentPaid, c.Payment.Status)
	assert.Equal(t, "CARD", c.Order.PaymentMethodCode)
	assert.Equal(t, int64(3), c.Order.RestaurantID)
	assert.Equal(t, "La Mar", c.Restaurant.Name)
	assert.Equal(t, int64(10), c.Address.ID)
	assert.Len(t, c.Items, 2)

	assert.Regexp(t, ident.Pattern, c.Order.OrderNumber)
	assert.Regexp(t, ident.Pattern, c.Invoice.InvoiceNumber)
	assert.Contains(t, c.Order.OrderNumber, "ORD-250309-")
	assert.Contains(t, c.Invoice.InvoiceNumber, "INV-250309-")
	assert.Regexp(t, `^ORD-\d{6}-[A-Z0-9]{5}-[A-Z]{4}$`, c.Order.PaymentReference)
	assert.Equal(t, c.Order.PaymentReference, c.Payment.Reference)

	st := f.store.state
	assert.Len(t, st.orders, 1)
	assert.Len(t, st.invoices, 1)
	assert.Len(t, st.payments, 1)
	assert.Len(t, st.items, 2)
	assert.Len(t, st.details, 2)
	assert.Len(t, st.discounts, 2)
	assert.Empty(t, st.carts[1])

	lines, err := f.store.Lines(context.Background(), owner.Account(1))
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestPlace_RecordsAreLinked(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Place(context.Background(), f.request())
	require.NoError(t, err)

	st := f.store.state
	o, inv := st.orders[0], st.invoices[0]
	assert.Equal(t, o.ID, inv.OrderID)
	assert.Equal(t, o.CustomerID, inv.CustomerID)
	assert.Equal(t, inv.ID, st.payments[0].InvoiceID)

	for i, it := range st.items {
		assert.Equal(t, o.ID, it.OrderID)
		assert.Equal(t, it.ID, st.details[i].OrderItemID)
		assert.Equal(t, inv.ID, st.details[i].InvoiceID)
		assert.True(t, it.TotalPrice.Equal(st.details[i].TotalPrice))
		assert.Equal(t, st.details[i].ID, st.discounts[i].InvoiceDetailID)
		assert.True(t, st.discounts[i].Amount.IsZero())
	}
	assert.True(t, decimal.RequireFromString("10.00").Equal(st.items[0].TotalPrice))
	assert.Equal(t, "Lomo saltado", st.items[0].Name)

	cust := st.customers[1]
	assert.Equal(t, "Ana", cust.FirstName)
	assert.Equal(t, "Lucia Perez", cust.LastName)
	assert.Equal(t, cust.ID, o.CustomerID)
}

func TestPlace_Atomicity(t *testing.T) {
	steps := []string{
		"EnsureCustomer",
		"InsertOrder",
		"InsertInvoice",
		"InsertItem",
		"InsertInvoiceDetail",
		"InsertInvoiceDiscount",
		"InsertInvoicePayment",
		"ClearCart",
	}
	for _, step := range steps {
		t.Run(step, func(t *testing.T) {
			f := newFixture(t)
			before := f.store.state.clone()
			f.store.failOn = step

			_, err := f.svc.Place(context.Background(), f.request())
			require.ErrorIs(t, err, errInjected)

			st := f.store.state
			assert.Empty(t, st.orders)
			assert.Empty(t, st.invoices)
			assert.Empty(t, st.items)
			assert.Empty(t, st.details)
			assert.Empty(t, st.discounts)
			assert.Empty(t, st.payments)
			assert.Empty(t, st.customers)
			assert.Equal(t, before.carts, st.carts)
			assert.Zero(t, f.store.commits)

			_, err = f.svc.Confirmation(context.Background(), "sess-1")
			require.ErrorIs(t, err, ErrNoConfirmation)
		})
	}
}

func TestPlace_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *fixture, req *PlaceRequest)
		wantErr error
	}{
		{
			name:    "anonymous",
			mutate:  func(_ *fixture, req *PlaceRequest) { req.Account = nil },
			wantErr: ErrAuthenticationRequired,
		},
		{
			name:    "unknown address",
			mutate:  func(_ *fixture, req *PlaceRequest) { req.AddressID = 99 },
			wantErr: ErrAddressNotFound,
		},
		{
			name:    "foreign address",
			mutate:  func(_ *fixture, req *PlaceRequest) { req.AddressID = 20 },
			wantErr: ErrAddressNotOwned,
		},
		{
			name:    "inactive payment method",
			mutate:  func(_ *fixture, req *PlaceRequest) { req.PaymentMethodID = 2 },
			wantErr: ErrPaymentMethodUnavailable,
		},
		{
			name:    "unknown payment method",
			mutate:  func(_ *fixture, req *PlaceRequest) { req.PaymentMethodID = 99 },
			wantErr: ErrPaymentMethodUnavailable,
		},
		{
			name:    "empty cart",
			mutate:  func(f *fixture, _ *PlaceRequest) { delete(f.store.state.carts, 1) },
			wantErr: ErrEmptyCart,
		},
		{
			name: "no ids and no selection",
			mutate: func(_ *fixture, req *PlaceRequest) {
				req.AddressID, req.PaymentMethodID = 0, 0
			},
			wantErr: ErrAddressNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := f.request()
			tt.mutate(f, &req)

			_, err := f.svc.Place(context.Background(), req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.store.commits)
			assert.Empty(t, f.store.state.orders)
			assert.Empty(t, f.store.state.customers)
		})
	}
}

func TestPlace_EmptyCartLeavesNothing(t *testing.T) {
	f := newFixture(t)
	delete(f.store.state.carts, 1)

	_, err := f.svc.Place(context.Background(), f.request())
	require.ErrorIs(t, err, ErrEmptyCart)

	lines, err := f.store.Lines(context.Background(), owner.Account(1))
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.Empty(t, f.store.state.orders)
}

func TestPlace_CartEmptiedBeforeTransaction(t *testing.T) {
	f := newFixture(t)
	// The precondition read sees lines, the transaction read does not.
	svc := f.svc
	svc.carts = staticCart{lines: f.store.state.carts[1]}
	delete(f.store.state.carts, 1)

	_, err := svc.Place(context.Background(), f.request())
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, f.store.state.orders)
}

func TestPlace_DeactivatedDishRejected(t *testing.T) {
	f := newFixture(t)
	f.store.state.carts[1][1].Unavailable = true
	before := f.store.state.clone()

	_, err := f.svc.Place(context.Background(), f.request())
	require.ErrorIs(t, err, catalog.ErrDishNotFound)
	assert.Contains(t, err.Error(), "dish 2")

	st := f.store.state
	assert.Empty(t, st.orders)
	assert.Empty(t, st.invoices)
	assert.Empty(t, st.items)
	assert.Empty(t, st.payments)
	assert.Empty(t, st.customers)
	assert.Equal(t, before.carts, st.carts)
	assert.Zero(t, f.store.orderInserts)
	assert.Zero(t, f.store.commits)

	_, err = f.svc.Confirmation(context.Background(), "sess-1")
	require.ErrorIs(t, err, ErrNoConfirmation)
}

type staticCart struct{ lines []cart.Line }

func (s staticCart) Lines(context.Context, owner.Owner) ([]cart.Line, error) {
	return s.lines, nil
}

func TestPlace_OrderNumberCollisionRetries(t *testing.T) {
	f := newFixture(t, WithGenerator(ident.NewGenerator(
		ident.WithRand(seqRand()),
		ident.WithClock(func() time.Time { return testNow }),
	)))

	// The first candidate the generator produces is already stored.
	shadow := ident.NewGenerator(ident.WithRand(seqRand()))
	first := shadow.Generate(ident.PrefixOrder, testNow)
	f.store.takenOrders[first] = true

	c, err := f.svc.Place(context.Background(), f.request())
	require.NoError(t, err)
	assert.NotEqual(t, first, c.Order.OrderNumber)
	assert.Regexp(t, ident.Pattern, c.Order.OrderNumber)
}

func TestPlace_InsertCollisionRegenerates(t *testing.T) {
	f := newFixture(t)
	f.store.dupOrderInserts = 2

	c, err := f.svc.Place(context.Background(), f.request())
	require.NoError(t, err)
	assert.Equal(t, 3, f.store.orderInserts)
	assert.Len(t, f.store.state.orders, 1)
	assert.Equal(t, c.Order.OrderNumber, f.store.state.orders[0].OrderNumber)
}

func TestPlace_InsertCollisionsExhaust(t *testing.T) {
	f := newFixture(t)
	f.store.dupOrderInserts = 1000

	_, err := f.svc.Place(context.Background(), f.request())
	require.ErrorIs(t, err, ident.ErrExhausted)
	assert.Equal(t, ident.DefaultMaxAttempts, f.store.orderInserts)
	assert.Empty(t, f.store.state.orders)
	assert.Len(t, f.store.state.carts[1], 2)
}

func TestPlace_MixedCollisionsShareAttemptBudget(t *testing.T) {
	f := newFixture(t, WithGenerator(ident.NewGenerator(
		ident.WithRand(seqRand()),
		ident.WithClock(func() time.Time { return testNow }),
	)))

	// The first three candidates are already stored and every later one is
	// taken at insert time.
	shadow := ident.NewGenerator(ident.WithRand(seqRand()))
	for range 3 {
		f.store.takenOrders[shadow.Generate(ident.PrefixOrder, testNow)] = true
	}
	f.store.dupOrderInserts = 1000

	_, err := f.svc.Place(context.Background(), f.request())
	require.ErrorIs(t, err, ident.ErrExhausted)
	assert.Equal(t, ident.DefaultMaxAttempts-3, f.store.orderInserts)
	assert.Empty(t, f.store.state.orders)
	assert.Len(t, f.store.state.carts[1], 2)
}

func TestPlace_UniqueNumbersAcrossCheckouts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cartLines := slices.Clone(f.store.state.carts[1])

	seen := map[string]bool{}
	for range 50 {
		f.store.state.carts[1] = slices.Clone(cartLines)
		c, err := f.svc.Place(ctx, f.request())
		require.NoError(t, err)
		require.False(t, seen[c.Order.OrderNumber], "duplicate %s", c.Order.OrderNumber)
		require.False(t, seen[c.Invoice.InvoiceNumber], "duplicate %s", c.Invoice.InvoiceNumber)
		seen[c.Order.OrderNumber] = true
		seen[c.Invoice.InvoiceNumber] = true
	}
	assert.Len(t, f.store.state.orders, 50)
	// A returning account reuses its billing profile.
	assert.Len(t, f.store.state.customers, 1)
}

func TestPlace_CachesConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.Place(ctx, f.request())
	require.NoError(t, err)

	got, err := f.svc.Confirmation(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, c.Order.OrderNumber, got.Order.OrderNumber)

	// Reading the confirmation again does not place another order.
	_, err = f.svc.Confirmation(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, f.store.state.orders, 1)

	_, err = f.svc.Confirmation(ctx, "other")
	require.ErrorIs(t, err, ErrNoConfirmation)
	_, err = f.svc.Confirmation(ctx, "")
	require.ErrorIs(t, err, ErrNoConfirmation)
}

func TestPlace_CacheFailureKeepsOrder(t *testing.T) {
	f := newFixture(t)
	f.sessions.saveErr = errInjected

	c, err := f.svc.Place(context.Background(), f.request())
	require.NoError(t, err)
	assert.NotEmpty(t, c.Order.OrderNumber)
	assert.Len(t, f.store.state.orders, 1)
}

func TestSelection_SaveAndPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sel, err := f.svc.SaveSelection(ctx, f.account, "sess-1", 10, 1, "ring twice")
	require.NoError(t, err)
	assert.Equal(t, "Home", sel.Address.Label)
	assert.Equal(t, "CARD", sel.PaymentMethod.Code)
	assert.Equal(t, testNow, sel.SavedAt)

	got, err := f.svc.Selection(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "ring twice", got.Notes)

	c, err := f.svc.Place(ctx, PlaceRequest{Account: f.account, SessionID: "sess-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), c.Order.DeliveryAddressID)
	assert.Equal(t, "ring twice", c.Order.SpecialInstructions)
}

func TestSelection_Overwrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SaveSelection(ctx, f.account, "sess-1", 10, 1, "first")
	require.NoError(t, err)
	_, err = f.svc.SaveSelection(ctx, f.account, "sess-1", 10, 1, "second")
	require.NoError(t, err)

	got, err := f.svc.Selection(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Notes)
}

func TestSelection_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SaveSelection(ctx, nil, "sess-1", 10, 1, "")
	require.ErrorIs(t, err, ErrAuthenticationRequired)

	_, err = f.svc.SaveSelection(ctx, f.account, "", 10, 1, "")
	require.ErrorIs(t, err, ErrSessionRequired)

	_, err = f.svc.SaveSelection(ctx, f.account, "sess-1", 20, 1, "")
	require.ErrorIs(t, err, ErrAddressNotOwned)

	_, err = f.svc.SaveSelection(ctx, f.account, "sess-1", 10, 2, "")
	require.ErrorIs(t, err, ErrPaymentMethodUnavailable)

	_, err = f.svc.Selection(ctx, "sess-1")
	require.ErrorIs(t, err, ErrNoSelection)
}

func TestSelection_EmptyCartAllowed(t *testing.T) {
	f := newFixture(t)
	delete(f.store.state.carts, 1)

	_, err := f.svc.SaveSelection(context.Background(), f.account, "sess-1", 10, 1, "")
	require.NoError(t, err)
}
