package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-checkout/internal/domain/auth"
	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/owner"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) error {
	id, _, err := h.identity(r)
	if err != nil {
		return err
	}
	var lines []cart.Line
	if o, ok := owner.Resolve(id); ok {
		if lines, err = h.carts.Lines(r.Context(), o); err != nil {
			return err
		}
	}
	writeCart(w, lines)
	return nil
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) error {
	id, _, err := h.identity(r)
	if err != nil {
		return err
	}
	o, err := owner.MustResolve(id)
	if err != nil {
		return err
	}

	var (
		dishID   int64
		quantity = 1
		options  json.RawMessage
	)
	if err := decodeObject(r, false, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "dishId":
			dishID, err = d.Int64()
		case "quantity":
			quantity, err = d.Int()
		case "options":
			options, err = decodeRaw(d)
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		return err
	}

	lines, err := h.carts.SetQuantity(r.Context(), o, dishID, quantity, options)
	if err != nil {
		return err
	}
	writeCart(w, lines)
	return nil
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) error {
	id, _, err := h.identity(r)
	if err != nil {
		return err
	}
	o, err := owner.MustResolve(id)
	if err != nil {
		return err
	}
	lines, err := h.carts.Clear(r.Context(), o)
	if err != nil {
		return err
	}
	writeCart(w, lines)
	return nil
}

// mergeCart moves the anonymous cart of the request into the signed-in
// account's cart.
func (h *Handler) mergeCart(w http.ResponseWriter, r *http.Request) error {
	acc, err := h.account(r)
	if err != nil {
		return err
	}
	if acc == nil {
		return auth.ErrUnauthorized
	}
	token := cartToken(r)
	if token == "" {
		return cart.ErrMergeOwners
	}
	lines, err := h.carts.Merge(r.Context(), owner.Anonymous(token), owner.Account(acc.ID))
	if err != nil {
		return err
	}
	writeCart(w, lines)
	return nil
}

func writeCart(w http.ResponseWriter, lines []cart.Line) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCart(e, lines) })
}
