package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/auth"
	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/catalog"
	"github.com/xenking/kart-checkout/internal/domain/checkout"
	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/domain/owner"
	"github.com/xenking/kart-checkout/pkg/httpmiddleware"
)

type apiError struct {
	status  int
	reason  string
	message string
}

var knownErrors = []struct {
	target error
	apiError
}{
	{owner.ErrOwnerRequired, apiError{http.StatusBadRequest, "owner_required", "a cart token or account is required"}},
	{cart.ErrMergeOwners, apiError{http.StatusBadRequest, "merge_owners", "merge needs a signed-in account and a cart token"}},
	{checkout.ErrSessionRequired, apiError{http.StatusBadRequest, "session_required", "a checkout session is required"}},
	{auth.ErrUnauthorized, apiError{http.StatusUnauthorized, "unauthorized", "invalid credentials"}},
	{checkout.ErrAuthenticationRequired, apiError{http.StatusUnauthorized, "authentication_required", "sign in to continue"}},
	{auth.ErrForbidden, apiError{http.StatusForbidden, "forbidden", "not allowed"}},
	{order.ErrNotFound, apiError{http.StatusNotFound, "order_not_found", "order not found"}},
	{checkout.ErrNoSelection, apiError{http.StatusNotFound, "no_selection", "no checkout selection saved"}},
	{checkout.ErrNoConfirmation, apiError{http.StatusNotFound, "no_confirmation", "no confirmation for this session"}},
	{cart.ErrCrossRestaurant, apiError{http.StatusConflict, "cross_restaurant", "the cart holds dishes of another restaurant"}},
	{order.ErrInvalidTransition, apiError{http.StatusConflict, "invalid_transition", "the order cannot move to that status"}},
	{catalog.ErrDishNotFound, apiError{http.StatusUnprocessableEntity, "dish_not_found", "dish not found"}},
	{checkout.ErrEmptyCart, apiError{http.StatusUnprocessableEntity, "empty_cart", "the cart is empty"}},
	{checkout.ErrAddressNotFound, apiError{http.StatusUnprocessableEntity, "address_not_found", "delivery address not found"}},
	{checkout.ErrAddressNotOwned, apiError{http.StatusUnprocessableEntity, "address_not_owned", "delivery address not found"}},
	{checkout.ErrPaymentMethodUnavailable, apiError{http.StatusUnprocessableEntity, "payment_method_unavailable", "payment method unavailable"}},
}

// writeError maps domain errors to the API error envelope. Unknown errors
// are logged and reported as 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		badRequest *badRequestError
		quantity   *cart.InvalidQuantityError
	)
	switch {
	case errors.As(err, &badRequest):
		httpmiddleware.WriteError(w, http.StatusBadRequest, "invalid_request", badRequest.Error())
		return
	case errors.As(err, &quantity):
		httpmiddleware.WriteError(w, http.StatusUnprocessableEntity, "invalid_quantity", quantity.Error())
		return
	}
	for _, k := range knownErrors {
		if errors.Is(err, k.target) {
			httpmiddleware.WriteError(w, k.status, k.reason, k.message)
			return
		}
	}

	message := "internal error"
	if r.URL.Path == "/api/checkout/place" {
		message = "could not complete checkout"
	}
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	httpmiddleware.WriteError(w, http.StatusInternalServerError, "internal", message)
}
