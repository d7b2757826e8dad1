package types

import (
	"errors"
	"net/http"
)

// Error taxonomy surfaced by the cart and checkout core. Handlers map these
// to HTTP statuses with ErrorStatusCode; everything else is a 500.
var (
	ErrInvalidItem           = errors.New("item is not available for purchase")
	ErrClubMismatch          = errors.New("cart already holds items for another club, clear it first")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrCartLocked            = errors.New("a payment is in progress for this cart, wait for it to finish")
	ErrAlreadyLocked         = errors.New("a payment is already in progress")
	ErrUnknownTransaction    = errors.New("no transaction matches the given reference")
	ErrGatewayUnavailable    = errors.New("payment gateway is unavailable")
	ErrMaterializationFailed = errors.New("could not materialize purchases")
)

func ErrorStatusCode(err error) int {
	switch {
	case errors.Is(err, ErrCartLocked), errors.Is(err, ErrAlreadyLocked):
		return http.StatusLocked
	case errors.Is(err, ErrInvalidItem), errors.Is(err, ErrEmptyCart), errors.Is(err, ErrMaterializationFailed):
		return http.StatusBadRequest
	case errors.Is(err, ErrClubMismatch):
		return http.StatusConflict
	case errors.Is(err, ErrUnknownTransaction):
		return http.StatusNotFound
	case errors.Is(err, ErrGatewayUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
