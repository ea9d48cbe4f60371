package api

import (
	"errors"
	"net/http"

	"github.com/okian/rigmatch/internal/adapters/inventory"
	service "github.com/okian/rigmatch/internal/app"
	"github.com/okian/rigmatch/internal/domain/model"
	"github.com/okian/rigmatch/internal/domain/recommend"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrTooLarge    = errors.New("request body too large")
	ErrInFlight    = errors.New("request with this idempotency key is in flight")
	ErrRateLimited = errors.New("too many requests")
)

// statusFor maps an error to its HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrUnknownCategory),
		errors.Is(err, recommend.ErrInvalidCount),
		errors.Is(err, inventory.ErrNoColumns):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, ErrInFlight):
		return http.StatusConflict, "conflict"
	case errors.Is(err, recommend.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, recommend.ErrNotTrained):
		return http.StatusServiceUnavailable, "not_trained"
	case errors.Is(err, service.ErrNotStarted),
		errors.Is(err, service.ErrNoInventory):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
