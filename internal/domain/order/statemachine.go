// internal/domain/order/statemachine.go
package order

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrIllegalTransition is returned when a non-override transition is not in the table
	ErrIllegalTransition = errors.New("illegal order status transition")
	// ErrConflict is returned when the order changed since it was read; the caller should retry
	ErrConflict = errors.New("order was modified concurrently, retry the operation")
	// ErrNotFound is returned when the order does not exist
	ErrNotFound = errors.New("order not found")
	// ErrAlreadyPaid is returned when confirming payment on an order whose payment already completed
	ErrAlreadyPaid = errors.New("payment already completed for this order")
	// ErrNotManualPayment is returned when manually confirming an order not settled out of band
	ErrNotManualPayment = errors.New("order is not an out-of-band payment order")
	// ErrNotPayable is returned when a payment attempt is opened on an order that is no longer payable
	ErrNotPayable = errors.New("order is not awaiting payment")
)

// transitions is the legality table for normal (non-override) status changes.
// Terminal statuses have no outgoing edges.
var transitions = map[Status][]Status{
	StatusPaymentPending: {StatusProcessing, StatusCancelled},
	StatusProcessing:     {StatusShipped, StatusCancelled},
	StatusShipped:        {StatusDelivered, StatusCancelled},
	StatusDelivered:      {},
	StatusCancelled:      {},
}

// CanTransition reports whether from -> to is a legal normal transition
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is a known order status
func ValidStatus(s Status) bool {
	switch s {
	case StatusPaymentPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Transition applies a normal status change to the in-memory order, appending
// exactly one history entry. The order is left untouched on rejection.
func Transition(o *Order, to Status, message string, actor uint, now time.Time) error {
	if !ValidStatus(to) {
		return fmt.Errorf("%w: unknown status %q", ErrIllegalTransition, to)
	}
	if !CanTransition(o.OrderStatus, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.OrderStatus, to)
	}

	o.OrderStatus = to
	appendHistory(o, to, message, actor, false, now)
	return nil
}

// Override forces any target status regardless of the legality table. It is
// the only way out of a terminal status, and every use is flagged in history
// so audits can tell it apart from a normal transition.
func Override(o *Order, to Status, message string, actor uint, now time.Time) error {
	if !ValidStatus(to) {
		return fmt.Errorf("%w: unknown status %q", ErrIllegalTransition, to)
	}

	o.OrderStatus = to
	appendHistory(o, to, message, actor, true, now)
	return nil
}

// ConfirmPayment applies a successful gateway verification to the in-memory
// order. It is idempotent: a confirmation arriving after the order was
// cancelled or already paid is a no-op, not an error, so duplicate gateway
// callbacks are harmless. Returns true when the confirmation was applied.
func ConfirmPayment(o *Order, gatewayPaymentID, signature string, now time.Time) bool {
	if o.IsPaid() || o.OrderStatus == StatusCancelled {
		return false
	}

	o.PaymentStatus = PaymentCompleted
	o.PaymentDetails.GatewayPaymentID = gatewayPaymentID
	o.PaymentDetails.Signature = signature
	paidAt := now
	o.PaymentDetails.PaidAt = &paidAt

	// Already moved forward manually: keep the status, record the payment only
	if o.OrderStatus == StatusPaymentPending {
		o.OrderStatus = StatusProcessing
		appendHistory(o, StatusProcessing, "Payment confirmed", 0, false, now)
	}
	return true
}

// ConfirmManualPayment records an out-of-band settlement verified by an
// administrator. Only valid for whatsapp orders whose payment is still
// pending.
func ConfirmManualPayment(o *Order, transactionRef string, adminID uint, now time.Time) error {
	if o.PaymentMethod != PaymentMethodWhatsApp {
		return ErrNotManualPayment
	}
	if o.IsPaid() {
		return ErrAlreadyPaid
	}
	if !CanTransition(o.OrderStatus, StatusProcessing) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.OrderStatus, StatusProcessing)
	}

	o.PaymentStatus = PaymentCompleted
	o.ManualPaymentDetails = ManualPaymentDetails{
		TransactionRef: transactionRef,
		VerifiedBy:     adminID,
		VerifiedAt:     &now,
	}
	o.OrderStatus = StatusProcessing
	appendHistory(o, StatusProcessing, fmt.Sprintf("Payment verified manually, ref %s", transactionRef), adminID, false, now)
	return nil
}

// AttachIntent stores a fresh gateway intent on the in-memory order,
// replacing any stale one. Only a still-payable order may take a new intent:
// a confirmation or cancellation may have landed while the gateway call was
// in flight, and neither a completed payment's proof nor a cancelled order
// may be overwritten with a payable intent.
func AttachIntent(o *Order, gatewayOrderID string, now time.Time) error {
	if !o.Payable(now) {
		return ErrNotPayable
	}

	o.PaymentDetails.GatewayOrderID = gatewayOrderID
	o.PaymentDetails.GatewayPaymentID = ""
	o.PaymentDetails.Signature = ""
	return nil
}

// RecordPaymentFailure marks the payment attempt failed. The order status and
// history are untouched; the order stays payable until its window lapses.
func RecordPaymentFailure(o *Order) error {
	if o.IsPaid() {
		return ErrAlreadyPaid
	}
	o.PaymentStatus = PaymentFailed
	return nil
}

func appendHistory(o *Order, status Status, message string, actor uint, override bool, now time.Time) {
	o.StatusHistory = append(o.StatusHistory, StatusEntry{
		OrderID:            o.ID,
		Status:             status,
		Message:            message,
		CreatedBy:          actor,
		IsCriticalOverride: override,
		CreatedAt:          now,
	})
}
