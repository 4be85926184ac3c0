package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-checkout/internal/domain/checkout"
)

type selectionRequest struct {
	AddressID       int64
	PaymentMethodID int64
	Notes           string
}

func decodeSelection(r *http.Request, optional bool) (selectionRequest, error) {
	var req selectionRequest
	err := decodeObject(r, optional, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "addressId":
			req.AddressID, err = d.Int64()
		case "paymentMethodId":
			req.PaymentMethodID, err = d.Int64()
		case "notes":
			req.Notes, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

func (h *Handler) saveSelection(w http.ResponseWriter, r *http.Request) error {
	acc, err := h.account(r)
	if err != nil {
		return err
	}
	req, err := decodeSelection(r, false)
	if err != nil {
		return err
	}
	sel, err := h.checkout.SaveSelection(r.Context(), acc, sessionID(r), req.AddressID, req.PaymentMethodID, req.Notes)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSelection(e, sel) })
	return nil
}

func (h *Handler) getSelection(w http.ResponseWriter, r *http.Request) error {
	sel, err := h.checkout.Selection(r.Context(), sessionID(r))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSelection(e, sel) })
	return nil
}

// placeOrder runs the checkout. Omitted ids fall back to the session's saved
// selection.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) error {
	acc, err := h.account(r)
	if err != nil {
		return err
	}
	req, err := decodeSelection(r, true)
	if err != nil {
		return err
	}
	c, err := h.checkout.Place(r.Context(), checkout.PlaceRequest{
		Account:         acc,
		SessionID:       sessionID(r),
		AddressID:       req.AddressID,
		PaymentMethodID: req.PaymentMethodID,
		Notes:           req.Notes,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeConfirmation(e, c) })
	return nil
}

// getConfirmation shows the session's last confirmation or sends the client
// back to the payment step.
func (h *Handler) getConfirmation(w http.ResponseWriter, r *http.Request) error {
	c, err := h.checkout.Confirmation(r.Context(), sessionID(r))
	if errors.Is(err, checkout.ErrNoConfirmation) {
		http.Redirect(w, r, h.paymentStepURL, http.StatusSeeOther)
		return nil
	}
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeConfirmation(e, c) })
	return nil
}
