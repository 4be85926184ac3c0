// Package handler serves the cart, checkout and order HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/xenking/kart-checkout/internal/domain/auth"
	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/checkout"
	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/domain/owner"
)

// Request credentials.
const (
	HeaderCartToken = "X-Cart-Token"
	HeaderSessionID = "X-Session-ID"
	HeaderAPIKey    = "api_key"

	cartTokenParam  = "cart_token"
	cartTokenCookie = "cart_token"
	sessionCookie   = "kart_session"
)

// Carts is the cart store.
type Carts interface {
	Lines(ctx context.Context, o owner.Owner) ([]cart.Line, error)
	SetQuantity(ctx context.Context, o owner.Owner, dishID int64, quantity int, options json.RawMessage) ([]cart.Line, error)
	Clear(ctx context.Context, o owner.Owner) ([]cart.Line, error)
	Merge(ctx context.Context, from, to owner.Owner) ([]cart.Line, error)
}

// Checkout is the checkout orchestrator.
type Checkout interface {
	Place(ctx context.Context, req checkout.PlaceRequest) (*checkout.Confirmation, error)
	SaveSelection(ctx context.Context, acc *auth.Account, sessionID string, addressID, paymentMethodID int64, notes string) (*checkout.Selection, error)
	Selection(ctx context.Context, sessionID string) (*checkout.Selection, error)
	Confirmation(ctx context.Context, sessionID string) (*checkout.Confirmation, error)
}

// Orders serves tracking and fulfillment updates.
type Orders interface {
	Track(ctx context.Context, accountID int64, number string) (*order.Tracking, error)
	Advance(ctx context.Context, number string, next order.Status) (*order.Order, error)
}

// Authenticator verifies bearer sessions and API keys.
type Authenticator interface {
	Account(ctx context.Context, token string) (*auth.Account, error)
	APIKey(ctx context.Context, key, scope string) (*auth.APIKeyInfo, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// PaymentStepURL is where the confirmation page redirects when the
	// session has no confirmation.
	PaymentStepURL string
}

// Handler serves the API routes.
type Handler struct {
	carts          Carts
	checkout       Checkout
	orders         Orders
	auth           Authenticator
	paymentStepURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg Config, carts Carts, co Checkout, orders Orders, authn Authenticator) *Handler {
	return &Handler{
		carts:          carts,
		checkout:       co,
		orders:         orders,
		auth:           authn,
		paymentStepURL: cfg.PaymentStepURL,
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/cart", h.handle(h.getCart))
	mux.HandleFunc("POST /api/cart/add", h.handle(h.addToCart))
	mux.HandleFunc("POST /api/cart/clear", h.handle(h.clearCart))
	mux.HandleFunc("POST /api/cart/merge", h.handle(h.mergeCart))

	mux.HandleFunc("POST /api/checkout/selection", h.handle(h.saveSelection))
	mux.HandleFunc("GET /api/checkout/selection", h.handle(h.getSelection))
	mux.HandleFunc("POST /api/checkout/place", h.handle(h.placeOrder))
	mux.HandleFunc("GET /api/checkout/confirmation", h.handle(h.getConfirmation))

	mux.HandleFunc("GET /api/orders/{orderNumber}/tracking", h.handle(h.trackOrder))
	mux.HandleFunc("POST /api/orders/{orderNumber}/status", h.handle(h.updateOrderStatus))
}

// handle adapts an error-returning handler.
func (h *Handler) handle(fn func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			writeError(w, r, err)
		}
	}
}

// account returns the authenticated account, nil for requests without a
// bearer token. A present but invalid token is an error.
func (h *Handler) account(r *http.Request) (*auth.Account, error) {
	v := r.Header.Get("Authorization")
	if v == "" {
		return nil, nil
	}
	token, ok := strings.CutPrefix(v, "Bearer ")
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	return h.auth.Account(r.Context(), strings.TrimSpace(token))
}

// identity resolves the owner inputs of the request.
func (h *Handler) identity(r *http.Request) (owner.Identity, *auth.Account, error) {
	acc, err := h.account(r)
	if err != nil {
		return owner.Identity{}, nil, err
	}
	id := owner.Identity{AnonymousToken: cartToken(r)}
	if acc != nil {
		id.Authenticated = true
		id.AccountID = acc.ID
	}
	return id, acc, nil
}

func cartToken(r *http.Request) string {
	if v := r.Header.Get(HeaderCartToken); v != "" {
		return v
	}
	if v := r.URL.Query().Get(cartTokenParam); v != "" {
		return v
	}
	if c, err := r.Cookie(cartTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

func sessionID(r *http.Request) string {
	if v := r.Header.Get(HeaderSessionID); v != "" {
		return v
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}
