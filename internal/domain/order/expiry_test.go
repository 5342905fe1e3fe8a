// internal/domain/order/expiry_test.go
package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpireIfStaleCancelsLapsedPendingOrder(t *testing.T) {
	expires := transitionTime.Add(-time.Minute)
	o := pendingOrder(func(o *Order) { o.PaymentExpiresAt = &expires })

	applied, err := ExpireIfStale(o, transitionTime)

	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, StatusCancelled, o.OrderStatus)
	require.Len(t, o.StatusHistory, 1, "normal transition path appends one entry")
	assert.Equal(t, "Payment window expired", o.StatusHistory[0].Message)
	assert.Equal(t, uint(0), o.StatusHistory[0].CreatedBy, "system entry")
	assert.False(t, o.StatusHistory[0].IsCriticalOverride, "expiry is not an override")
}

func TestExpireIfStaleSkipsUnexpiredOrder(t *testing.T) {
	expires := transitionTime.Add(time.Minute)
	o := pendingOrder(func(o *Order) { o.PaymentExpiresAt = &expires })

	applied, err := ExpireIfStale(o, transitionTime)

	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, StatusPaymentPending, o.OrderStatus)
	assert.Empty(t, o.StatusHistory)
}

func TestExpireIfStaleSkipsOrderWithoutDeadline(t *testing.T) {
	o := pendingOrder(nil)

	applied, err := ExpireIfStale(o, transitionTime)

	require.NoError(t, err)
	assert.False(t, applied)
}

func TestExpireIfStaleSkipsAdvancedOrder(t *testing.T) {
	// Paid and moved to processing before the sweep reached it; the lapsed
	// deadline no longer matters.
	expires := transitionTime.Add(-time.Minute)
	for _, status := range []Status{StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled} {
		o := pendingOrder(func(o *Order) {
			o.OrderStatus = status
			o.PaymentExpiresAt = &expires
		})

		applied, err := ExpireIfStale(o, transitionTime)

		require.NoError(t, err)
		assert.False(t, applied, "status %s must not be expired", status)
		assert.Equal(t, status, o.OrderStatus)
		assert.Empty(t, o.StatusHistory)
	}
}
