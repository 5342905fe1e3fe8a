// internal/domain/order/statemachine_test.go
package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var transitionTime = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func pendingOrder(mutate func(*Order)) *Order {
	o := &Order{
		ID:            42,
		DisplayID:     "ORD-20260615-00042",
		UserID:        7,
		OrderStatus:   StatusPaymentPending,
		PaymentMethod: PaymentMethodOnline,
		PaymentStatus: PaymentPending,
		TotalAmount:   100000,
		FinalAmount:   100000,
		Version:       1,
	}
	if mutate != nil {
		mutate(o)
	}
	return o
}

func TestTransitionTable(t *testing.T) {
	all := []Status{StatusPaymentPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}
	legal := map[Status]map[Status]bool{
		StatusPaymentPending: {StatusProcessing: true, StatusCancelled: true},
		StatusProcessing:     {StatusShipped: true, StatusCancelled: true},
		StatusShipped:        {StatusDelivered: true, StatusCancelled: true},
		StatusDelivered:      {},
		StatusCancelled:      {},
	}

	for _, from := range all {
		for _, to := range all {
			o := pendingOrder(func(o *Order) { o.OrderStatus = from })
			err := Transition(o, to, "test", 1, transitionTime)

			if legal[from][to] {
				require.NoError(t, err, "%s -> %s should be legal", from, to)
				assert.Equal(t, to, o.OrderStatus)
				assert.Len(t, o.StatusHistory, 1)
			} else {
				require.ErrorIs(t, err, ErrIllegalTransition, "%s -> %s should be illegal", from, to)
				assert.Equal(t, from, o.OrderStatus, "rejected transition must not mutate the order")
				assert.Empty(t, o.StatusHistory, "rejected transition must not append history")
			}
		}
	}
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	o := pendingOrder(nil)
	err := Transition(o, Status("refunded"), "test", 1, transitionTime)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestTransitionAppendsExactlyOneEntry(t *testing.T) {
	o := pendingOrder(nil)

	require.NoError(t, Transition(o, StatusProcessing, "Packing started", 3, transitionTime))
	require.NoError(t, Transition(o, StatusShipped, "Handed to courier", 3, transitionTime.Add(time.Hour)))
	require.NoError(t, Transition(o, StatusDelivered, "Delivered", 3, transitionTime.Add(2*time.Hour)))

	require.Len(t, o.StatusHistory, 3)
	assert.Equal(t, StatusProcessing, o.StatusHistory[0].Status)
	assert.Equal(t, StatusShipped, o.StatusHistory[1].Status)
	assert.Equal(t, StatusDelivered, o.StatusHistory[2].Status)
	for _, e := range o.StatusHistory {
		assert.False(t, e.IsCriticalOverride)
		assert.Equal(t, uint(3), e.CreatedBy)
	}
}

func TestOverrideEscapesTerminalStatus(t *testing.T) {
	o := pendingOrder(func(o *Order) { o.OrderStatus = StatusDelivered })

	// Normal path is closed
	err := Transition(o, StatusProcessing, "reopen", 9, transitionTime)
	require.ErrorIs(t, err, ErrIllegalTransition)

	// Override goes through and is flagged
	require.NoError(t, Override(o, StatusProcessing, "Courier scanned wrong parcel", 9, transitionTime))
	assert.Equal(t, StatusProcessing, o.OrderStatus)
	require.Len(t, o.StatusHistory, 1)
	assert.True(t, o.StatusHistory[0].IsCriticalOverride)
	assert.Equal(t, uint(9), o.StatusHistory[0].CreatedBy)
}

func TestOverrideRejectsUnknownStatus(t *testing.T) {
	o := pendingOrder(nil)
	err := Override(o, Status("lost"), "test", 9, transitionTime)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Empty(t, o.StatusHistory)
}

func TestConfirmPaymentMovesToProcessing(t *testing.T) {
	o := pendingOrder(nil)

	applied := ConfirmPayment(o, "pay_abc123", "sig", transitionTime)

	require.True(t, applied)
	assert.Equal(t, StatusProcessing, o.OrderStatus)
	assert.Equal(t, PaymentCompleted, o.PaymentStatus)
	assert.Equal(t, "pay_abc123", o.PaymentDetails.GatewayPaymentID)
	require.NotNil(t, o.PaymentDetails.PaidAt)
	assert.Equal(t, transitionTime, *o.PaymentDetails.PaidAt)
	require.Len(t, o.StatusHistory, 1)
	assert.Equal(t, uint(0), o.StatusHistory[0].CreatedBy, "system entry")
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	o := pendingOrder(nil)

	require.True(t, ConfirmPayment(o, "pay_abc123", "sig", transitionTime))
	historyLen := len(o.StatusHistory)

	// Duplicate callback: no-op, no second transition, no new history
	applied := ConfirmPayment(o, "pay_abc123", "sig", transitionTime.Add(time.Minute))
	assert.False(t, applied)
	assert.Equal(t, StatusProcessing, o.OrderStatus)
	assert.Len(t, o.StatusHistory, historyLen)
	assert.Equal(t, transitionTime, *o.PaymentDetails.PaidAt, "first confirmation wins")
}

func TestConfirmPaymentAfterCancellationIsNoOp(t *testing.T) {
	o := pendingOrder(func(o *Order) { o.OrderStatus = StatusCancelled })

	applied := ConfirmPayment(o, "pay_abc123", "sig", transitionTime)

	assert.False(t, applied)
	assert.Equal(t, StatusCancelled, o.OrderStatus)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
}

func TestConfirmPaymentKeepsManuallyAdvancedStatus(t *testing.T) {
	// Admin already moved the order to processing before the gateway callback
	// landed; the payment is recorded without a second status change.
	o := pendingOrder(func(o *Order) { o.OrderStatus = StatusProcessing })

	applied := ConfirmPayment(o, "pay_abc123", "sig", transitionTime)

	require.True(t, applied)
	assert.Equal(t, StatusProcessing, o.OrderStatus)
	assert.Equal(t, PaymentCompleted, o.PaymentStatus)
	assert.Empty(t, o.StatusHistory, "no transition happened, so no entry")
}

func TestConfirmManualPayment(t *testing.T) {
	o := pendingOrder(func(o *Order) { o.PaymentMethod = PaymentMethodWhatsApp })

	require.NoError(t, ConfirmManualPayment(o, "UPI-9981", 5, transitionTime))

	assert.Equal(t, StatusProcessing, o.OrderStatus)
	assert.Equal(t, PaymentCompleted, o.PaymentStatus)
	assert.Equal(t, "UPI-9981", o.ManualPaymentDetails.TransactionRef)
	assert.Equal(t, uint(5), o.ManualPaymentDetails.VerifiedBy)
	require.Len(t, o.StatusHistory, 1)
	assert.Equal(t, uint(5), o.StatusHistory[0].CreatedBy)
}

func TestConfirmManualPaymentRejectsOnlineOrders(t *testing.T) {
	o := pendingOrder(nil)
	err := ConfirmManualPayment(o, "UPI-9981", 5, transitionTime)
	assert.ErrorIs(t, err, ErrNotManualPayment)
}

func TestConfirmManualPaymentRejectsAlreadyPaid(t *testing.T) {
	o := pendingOrder(func(o *Order) {
		o.PaymentMethod = PaymentMethodWhatsApp
		o.PaymentStatus = PaymentCompleted
	})
	err := ConfirmManualPayment(o, "UPI-9981", 5, transitionTime)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestConfirmManualPaymentRejectsCancelledOrder(t *testing.T) {
	o := pendingOrder(func(o *Order) {
		o.PaymentMethod = PaymentMethodWhatsApp
		o.OrderStatus = StatusCancelled
	})
	err := ConfirmManualPayment(o, "UPI-9981", 5, transitionTime)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestAttachIntentReplacesStaleIntent(t *testing.T) {
	expires := transitionTime.Add(30 * time.Minute)
	o := pendingOrder(func(o *Order) {
		o.PaymentExpiresAt = &expires
		o.PaymentDetails.GatewayOrderID = "rzp_order_old"
		o.PaymentStatus = PaymentFailed
	})

	require.NoError(t, AttachIntent(o, "rzp_order_new", transitionTime))

	assert.Equal(t, "rzp_order_new", o.PaymentDetails.GatewayOrderID)
	assert.Empty(t, o.PaymentDetails.GatewayPaymentID)
	assert.Empty(t, o.PaymentDetails.Signature)
}

func TestAttachIntentRejectsPaidOrder(t *testing.T) {
	// Confirmation landed while the gateway call was in flight; the recorded
	// payment proof must survive.
	expires := transitionTime.Add(30 * time.Minute)
	o := pendingOrder(func(o *Order) { o.PaymentExpiresAt = &expires })
	require.True(t, ConfirmPayment(o, "pay_abc123", "sig", transitionTime))

	err := AttachIntent(o, "rzp_order_new", transitionTime)

	require.ErrorIs(t, err, ErrNotPayable)
	assert.Equal(t, "pay_abc123", o.PaymentDetails.GatewayPaymentID)
	assert.Equal(t, "sig", o.PaymentDetails.Signature)
}

func TestAttachIntentRejectsCancelledOrder(t *testing.T) {
	expires := transitionTime.Add(30 * time.Minute)
	o := pendingOrder(func(o *Order) {
		o.PaymentExpiresAt = &expires
		o.OrderStatus = StatusCancelled
	})

	err := AttachIntent(o, "rzp_order_new", transitionTime)

	require.ErrorIs(t, err, ErrNotPayable)
	assert.Empty(t, o.PaymentDetails.GatewayOrderID)
}

func TestAttachIntentRejectsLapsedWindow(t *testing.T) {
	expires := transitionTime.Add(-time.Minute)
	o := pendingOrder(func(o *Order) { o.PaymentExpiresAt = &expires })

	err := AttachIntent(o, "rzp_order_new", transitionTime)

	assert.ErrorIs(t, err, ErrNotPayable)
}

func TestRecordPaymentFailure(t *testing.T) {
	o := pendingOrder(nil)

	require.NoError(t, RecordPaymentFailure(o))

	assert.Equal(t, PaymentFailed, o.PaymentStatus)
	assert.Equal(t, StatusPaymentPending, o.OrderStatus, "a failed attempt is not a transition")
	assert.Empty(t, o.StatusHistory, "failures never append history")
}

func TestRecordPaymentFailureRejectsPaidOrder(t *testing.T) {
	o := pendingOrder(func(o *Order) { o.PaymentStatus = PaymentCompleted })

	err := RecordPaymentFailure(o)

	require.ErrorIs(t, err, ErrAlreadyPaid)
	assert.Equal(t, PaymentCompleted, o.PaymentStatus)
}

func TestFinalAmountNeverNegative(t *testing.T) {
	assert.Equal(t, int64(1200), FinalAmount(1000, 300, 100))
	assert.Equal(t, int64(0), FinalAmount(500, 0, 800), "discount larger than total clamps to zero")
	assert.Equal(t, int64(500), FinalAmount(500, 0, 0))
}

func TestPayable(t *testing.T) {
	expires := transitionTime.Add(30 * time.Minute)

	o := pendingOrder(func(o *Order) { o.PaymentExpiresAt = &expires })
	assert.True(t, o.Payable(transitionTime))
	assert.False(t, o.Payable(expires.Add(time.Second)), "expired window")

	paid := pendingOrder(func(o *Order) {
		o.PaymentExpiresAt = &expires
		o.PaymentStatus = PaymentCompleted
	})
	assert.False(t, paid.Payable(transitionTime))

	cancelled := pendingOrder(func(o *Order) {
		o.PaymentExpiresAt = &expires
		o.OrderStatus = StatusCancelled
	})
	assert.False(t, cancelled.Payable(transitionTime))
}

func TestFormatDisplayID(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "ORD-20260302-00042", FormatDisplayID(42, at))
}
