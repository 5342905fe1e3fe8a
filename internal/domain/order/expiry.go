// internal/domain/order/expiry.go
package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// expiryMessage is the system-generated note on window-lapse cancellations
const expiryMessage = "Payment window expired"

// ExpireIfStale applies the payment-window rule to the in-memory order: a
// payment_pending order whose window lapsed before now is cancelled through
// the normal transition path with a system message. Any other order is left
// untouched. Returns true when the cancellation was applied.
func ExpireIfStale(o *Order, now time.Time) (bool, error) {
	if o.OrderStatus != StatusPaymentPending || !o.IsExpired(now) {
		return false, nil
	}
	if err := Transition(o, StatusCancelled, expiryMessage, 0, now); err != nil {
		return false, err
	}
	return true, nil
}

// ExpireStalePendingOrders sweeps every payment_pending order whose payment
// window lapsed before now and cancels it via ExpireIfStale. A concurrent
// mutation on one order skips it, the next sweep picks it up. Returns the
// number of orders cancelled.
func (s *Service) ExpireStalePendingOrders(now time.Time) (int, error) {
	var ids []uint
	err := s.db.Model(&Order{}).
		Where("order_status = ? AND payment_expires_at IS NOT NULL AND payment_expires_at < ?", StatusPaymentPending, now).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("failed to query expired orders: %w", err)
	}

	expired := 0
	for _, id := range ids {
		o, err := s.loadForMutation(id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return expired, err
		}

		// Someone may have paid or cancelled it since the id query
		applied, err := ExpireIfStale(o, now)
		if err != nil || !applied {
			continue
		}

		if err := s.persistMutation(o); err != nil {
			if errors.Is(err, ErrConflict) {
				continue
			}
			return expired, fmt.Errorf("failed to expire order %d: %w", id, err)
		}
		expired++
	}

	if expired > 0 {
		logrus.WithField("count", expired).Info("Expired stale pending orders")
	}
	return expired, nil
}
