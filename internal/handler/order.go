package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-checkout/internal/domain/auth"
	"github.com/xenking/kart-checkout/internal/domain/order"
)

func (h *Handler) trackOrder(w http.ResponseWriter, r *http.Request) error {
	acc, err := h.account(r)
	if err != nil {
		return err
	}
	if acc == nil {
		return auth.ErrUnauthorized
	}
	t, err := h.orders.Track(r.Context(), acc.ID, r.PathValue("orderNumber"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.Field("order", func(e *jx.Encoder) { encodeOrderSummary(e, t.Order) })
		e.Field("timeline", func(e *jx.Encoder) { encodeTimeline(e, t.Timeline) })
		e.ObjEnd()
	})
	return nil
}

// updateOrderStatus is the fulfillment endpoint, authorized by API key.
func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) error {
	key := r.Header.Get(HeaderAPIKey)
	if key == "" {
		key = r.Header.Get("X-API-Key")
	}
	if key == "" {
		return auth.ErrUnauthorized
	}
	if _, err := h.auth.APIKey(r.Context(), key, auth.ScopeUpdateOrderStatus); err != nil {
		return err
	}

	var raw string
	if err := decodeObject(r, false, func(d *jx.Decoder, k string) (err error) {
		if k == "status" {
			raw, err = d.Str()
			return err
		}
		return d.Skip()
	}); err != nil {
		return err
	}
	next, err := order.ParseStatus(raw)
	if err != nil {
		return &badRequestError{err: err}
	}

	o, err := h.orders.Advance(r.Context(), r.PathValue("orderNumber"), next)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrderSummary(e, o) })
	return nil
}
