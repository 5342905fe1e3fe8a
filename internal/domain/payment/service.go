// internal/domain/payment/service.go
package payment

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/checkout-backend/internal/config"
	"github.com/your-org/checkout-backend/internal/domain/order"
	"gorm.io/gorm"
)

var (
	// ErrSignatureMismatch is returned when a payment confirmation fails
	// signature verification. The order stays payment_pending.
	ErrSignatureMismatch = errors.New("payment signature verification failed")
)

// Service drives the gateway handshake against the order lifecycle. All state
// lives on the order; this service never keeps payment state of its own.
type Service struct {
	db      *gorm.DB
	config  *config.Config
	orders  *order.Service
	gateway Gateway
	now     func() time.Time
}

// NewService creates a new payment service
func NewService(db *gorm.DB, cfg *config.Config, orders *order.Service, gateway Gateway) *Service {
	return &Service{
		db:      db,
		config:  cfg,
		orders:  orders,
		gateway: gateway,
		now:     time.Now,
	}
}

// InitiationResponse carries everything the checkout widget needs to collect payment
type InitiationResponse struct {
	GatewayOrderID string `json:"gateway_order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	KeyID          string `json:"key_id"`
}

// VerificationRequest is the client-side confirmation payload
type VerificationRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" binding:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" binding:"required"`
	Signature        string `json:"signature" binding:"required"`
}

// Initiate opens a payment attempt for an order the user owns. The order must
// still be payable at the moment of the call; the intent amount is the
// order's final amount, never recomputed client-side.
func (s *Service) Initiate(userID, orderID uint) (*InitiationResponse, error) {
	o, err := s.orders.GetOrderForUser(userID, orderID)
	if err != nil {
		return nil, err
	}
	return s.openIntent(o)
}

// Retry opens a fresh payment attempt after a failed one. Only allowed while
// the order is still within its payment window; the new intent replaces the
// old one on the order so stale confirmations can't match.
func (s *Service) Retry(userID, orderID uint) (*InitiationResponse, error) {
	o, err := s.orders.GetOrderForUser(userID, orderID)
	if err != nil {
		return nil, err
	}
	return s.openIntent(o)
}

// Verify checks a payment confirmation and applies it to the order. An
// invalid signature fails closed: the order is untouched and stays
// payment_pending. A valid confirmation is idempotent through the order
// service.
func (s *Service) Verify(req *VerificationRequest) (*order.Order, error) {
	if !s.gateway.VerifySignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature) {
		logrus.WithFields(logrus.Fields{
			"gateway_order_id": req.GatewayOrderID,
		}).Warn("Payment signature verification failed")
		return nil, ErrSignatureMismatch
	}

	o, err := s.orders.ConfirmGatewayPayment(req.GatewayOrderID, req.GatewayPaymentID, req.Signature)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id":           o.ID,
		"display_id":         o.DisplayID,
		"gateway_payment_id": req.GatewayPaymentID,
	}).Info("Payment confirmed")
	return o, nil
}

// HandleFailure records a terminal payment failure reported by the client.
// The order keeps its payment window; the user may still retry until it
// lapses.
func (s *Service) HandleFailure(userID, orderID uint, reason string) (*order.Order, error) {
	if _, err := s.orders.GetOrderForUser(userID, orderID); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "payment attempt failed"
	}
	return s.orders.MarkPaymentFailed(orderID, reason)
}

// openIntent re-checks payability, creates the gateway intent, and stores it
// on the order
func (s *Service) openIntent(o *order.Order) (*InitiationResponse, error) {
	if o.PaymentMethod != order.PaymentMethodOnline {
		return nil, order.ErrNotPayable
	}
	if !o.Payable(s.now().UTC()) {
		return nil, order.ErrNotPayable
	}

	intent, err := s.gateway.CreateIntent(o.FinalAmount, o.DisplayID)
	if err != nil {
		return nil, fmt.Errorf("failed to open payment attempt: %w", err)
	}

	if _, err := s.orders.SetPaymentIntent(o.ID, intent.ID); err != nil {
		return nil, err
	}

	return &InitiationResponse{
		GatewayOrderID: intent.ID,
		Amount:         intent.Amount,
		Currency:       intent.Currency,
		Receipt:        o.DisplayID,
		KeyID:          s.gateway.ClientKeyID(),
	}, nil
}
