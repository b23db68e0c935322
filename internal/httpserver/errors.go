package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_orders/internal/cart"
	"github.com/Skotchmaster/shop_orders/internal/catalog"
	"github.com/Skotchmaster/shop_orders/internal/checkout"
	"github.com/Skotchmaster/shop_orders/internal/customers"
	"github.com/Skotchmaster/shop_orders/internal/orders"
	"github.com/Skotchmaster/shop_orders/internal/reviews"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, orders.ErrTransient):
		return http.StatusServiceUnavailable
	case errors.Is(err, orders.ErrStructural),
		errors.Is(err, orders.ErrNoValidItems),
		errors.Is(err, customers.ErrEmailTaken),
		errors.Is(err, reviews.ErrDuplicateReview):
		return http.StatusConflict
	case errors.Is(err, reviews.ErrNotPurchased),
		errors.Is(err, reviews.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, customers.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, customers.ErrCustomerNotFound),
		errors.Is(err, reviews.ErrReviewNotFound):
		return http.StatusNotFound
	case errors.Is(err, orders.ErrValidation),
		errors.Is(err, catalog.ErrValidation),
		errors.Is(err, customers.ErrValidation),
		errors.Is(err, reviews.ErrValidation),
		errors.Is(err, cart.ErrInvalidQuantity):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err under event and converts it into the HTTP error for its
// kind. Server errors keep their detail out of the response body.
func fail(c echo.Context, l *slog.Logger, event string, err error) error {
	code := statusFor(err)
	if code >= 500 && code != http.StatusServiceUnavailable {
		l.Error(event, "status", code, "error", err)
		return echo.NewHTTPError(code, http.StatusText(code))
	}

	l.Warn(event, "status", code, "error", err)
	if code == http.StatusServiceUnavailable && checkout.Retryable(err) {
		c.Response().Header().Set("Retry-After", "1")
		return echo.NewHTTPError(code, "temporarily unavailable, retry the request")
	}
	return echo.NewHTTPError(code, err.Error())
}

func badRequest(l *slog.Logger, event, reason string, err error) error {
	l.Warn(event, "status", 400, "reason", reason, "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, reason)
}
