// internal/interfaces/http/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/checkout-backend/internal/domain/cart"
	"github.com/your-org/checkout-backend/internal/domain/checkout"
	"github.com/your-org/checkout-backend/internal/domain/coupon"
	"github.com/your-org/checkout-backend/internal/domain/order"
	"github.com/your-org/checkout-backend/internal/domain/payment"
	"github.com/your-org/checkout-backend/internal/domain/user"
)

// statusForError maps domain sentinel errors onto HTTP status codes. Unknown
// errors are treated as internal.
func statusForError(err error) int {
	switch {
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, coupon.ErrCouponNotFound),
		errors.Is(err, user.ErrAddressNotFound),
		errors.Is(err, cart.ErrItemNotFound):
		return http.StatusNotFound

	case errors.Is(err, order.ErrConflict):
		return http.StatusConflict

	case errors.Is(err, order.ErrIllegalTransition),
		errors.Is(err, order.ErrAlreadyPaid),
		errors.Is(err, order.ErrNotManualPayment),
		errors.Is(err, order.ErrNotPayable):
		return http.StatusConflict

	case errors.Is(err, payment.ErrSignatureMismatch):
		return http.StatusBadRequest

	case errors.Is(err, payment.ErrGatewayUnavailable):
		return http.StatusBadGateway

	case errors.Is(err, cart.ErrQuantityLimitExceeded),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrProductUnavailable),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidPaymentMethod),
		errors.Is(err, checkout.ErrInvalidShippingMethod),
		errors.Is(err, user.ErrAddressLimitReached):
		return http.StatusBadRequest

	case errors.Is(err, coupon.ErrCouponInactive),
		errors.Is(err, coupon.ErrCouponNotYetValid),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrBelowMinimum),
		errors.Is(err, coupon.ErrUsageLimitReached),
		errors.Is(err, coupon.ErrUserLimitReached),
		errors.Is(err, coupon.ErrNotEligible):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// respondError writes the standard error envelope for a domain error
func respondError(c *gin.Context, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{
			"error": "Internal server error",
		})
		return
	}
	c.JSON(status, gin.H{
		"error": err.Error(),
	})
}
