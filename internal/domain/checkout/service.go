// internal/domain/checkout/service.go
package checkout

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/checkout-backend/internal/config"
	"github.com/your-org/checkout-backend/internal/domain/cart"
	"github.com/your-org/checkout-backend/internal/domain/coupon"
	"github.com/your-org/checkout-backend/internal/domain/order"
	"github.com/your-org/checkout-backend/internal/domain/payment"
	"github.com/your-org/checkout-backend/internal/domain/product"
	"github.com/your-org/checkout-backend/internal/domain/user"
	"github.com/your-org/checkout-backend/internal/pkg/notification"
	"gorm.io/gorm"
)

var (
	// ErrEmptyCart is returned when placing an order with no cart lines
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidPaymentMethod is returned for an unknown payment method
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	// ErrInvalidShippingMethod is returned for an unknown shipping method
	ErrInvalidShippingMethod = errors.New("invalid shipping method")
)

// Service orchestrates order placement. Placement is a single transaction:
// the order with its frozen items and creation history, the coupon redemption
// and the cart wipe commit together or not at all. Opening the payment intent
// happens after commit; a gateway outage leaves a valid pending order the
// user can retry.
type Service struct {
	db        *gorm.DB
	config    *config.Config
	carts     *cart.Service
	addresses *user.AddressService
	coupons   *coupon.Service
	orders    *order.Service
	payments  *payment.Service
	now       func() time.Time
}

// NewService creates a new checkout service
func NewService(
	db *gorm.DB,
	cfg *config.Config,
	carts *cart.Service,
	addresses *user.AddressService,
	coupons *coupon.Service,
	orders *order.Service,
	payments *payment.Service,
) *Service {
	return &Service{
		db:        db,
		config:    cfg,
		carts:     carts,
		addresses: addresses,
		coupons:   coupons,
		orders:    orders,
		payments:  payments,
		now:       time.Now,
	}
}

// PlaceOrderRequest represents order placement data
type PlaceOrderRequest struct {
	AddressID      uint   `json:"address_id" binding:"required"`
	PaymentMethod  string `json:"payment_method" binding:"required,oneof=online whatsapp"`
	ShippingMethod string `json:"shipping_method" binding:"omitempty,oneof=standard express"`
	CouponCode     string `json:"coupon_code"`
}

// PlaceOrderResponse carries the placed order plus whatever the chosen
// payment method needs next
type PlaceOrderResponse struct {
	Order *order.Order `json:"order"`
	// Payment is set for online orders when the intent opened successfully
	Payment *payment.InitiationResponse `json:"payment,omitempty"`
	// PaymentPending is set when the intent could not be opened; the order
	// stands and payment can be retried
	PaymentPending bool `json:"payment_pending,omitempty"`
	// WhatsAppMessage is the prefilled order summary for out-of-band settlement
	WhatsAppMessage string `json:"whatsapp_message,omitempty"`
}

// PreviewRequest represents a coupon/totals preview over the current cart
type PreviewRequest struct {
	CouponCode     string `json:"coupon_code"`
	ShippingMethod string `json:"shipping_method" binding:"omitempty,oneof=standard express"`
}

// PreviewResponse is the totals breakdown before placement. Previewing never
// consumes coupon usage.
type PreviewResponse struct {
	Totals     Totals `json:"totals"`
	CouponCode string `json:"coupon_code,omitempty"`
}

// PlaceOrder converts the user's cart into an order
func (s *Service) PlaceOrder(userID uint, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	method := order.PaymentMethod(req.PaymentMethod)
	if method != order.PaymentMethodOnline && method != order.PaymentMethodWhatsApp {
		return nil, ErrInvalidPaymentMethod
	}
	shipping, err := parseShippingMethod(req.ShippingMethod)
	if err != nil {
		return nil, err
	}

	lines, err := s.carts.Lines(&userID, "")
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	address, err := s.addresses.GetAddress(userID, req.AddressID)
	if err != nil {
		return nil, err
	}

	// Coupon eligibility is re-checked here, at placement, regardless of any
	// earlier preview
	var discount int64
	var appliedCoupon *coupon.Coupon
	if req.CouponCode != "" {
		discount, appliedCoupon, err = s.coupons.EvaluateForUser(req.CouponCode, lines, userID)
		if err != nil {
			return nil, err
		}
	}

	items, err := s.freezeItems(lines)
	if err != nil {
		return nil, err
	}

	totals := ComputeTotals(&s.config.Checkout, lines, shipping, discount)
	now := s.now().UTC()
	expiresAt := now.Add(s.config.Checkout.PaymentWindow)

	o := &order.Order{
		UserID:           userID,
		PaymentMethod:    method,
		TotalAmount:      totals.Subtotal,
		ShippingFee:      totals.ShippingFee,
		DiscountAmount:   totals.Discount,
		PaymentExpiresAt: &expiresAt,
		ShippingAddress: order.Address{
			Name:       address.Name,
			Phone:      address.Phone,
			Street:     address.Street,
			City:       address.City,
			State:      address.State,
			PostalCode: address.PostalCode,
			Country:    address.Country,
		},
		Items: items,
	}
	if appliedCoupon != nil {
		o.DiscountCode = appliedCoupon.Code
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.orders.Create(tx, o); err != nil {
			return err
		}
		if appliedCoupon != nil {
			if err := s.coupons.Redeem(tx, appliedCoupon, userID, o.ID, discount); err != nil {
				return err
			}
		}
		// Wipe the cart in the same transaction; a failed placement leaves it intact
		if err := tx.Unscoped().Where("user_id = ?", userID).Delete(&cart.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id":       o.ID,
		"display_id":     o.DisplayID,
		"user_id":        userID,
		"payment_method": method,
		"final_amount":   o.FinalAmount,
	}).Info("Order placed")

	resp := &PlaceOrderResponse{Order: o}
	switch method {
	case order.PaymentMethodWhatsApp:
		resp.WhatsAppMessage = notification.BuildOrderSummary(o)
	case order.PaymentMethodOnline:
		initiation, err := s.payments.Initiate(userID, o.ID)
		if err != nil {
			// The order stands; payment is retried from the order page
			logrus.WithFields(logrus.Fields{
				"order_id": o.ID,
				"error":    err.Error(),
			}).Warn("Failed to open payment attempt after placement")
			resp.PaymentPending = true
		} else {
			resp.Payment = initiation
		}
	}

	if full, err := s.orders.GetOrder(o.ID); err == nil {
		resp.Order = full
	}
	return resp, nil
}

// Preview evaluates the coupon and totals against the current cart without
// placing anything
func (s *Service) Preview(userID uint, req *PreviewRequest) (*PreviewResponse, error) {
	shipping, err := parseShippingMethod(req.ShippingMethod)
	if err != nil {
		return nil, err
	}

	lines, err := s.carts.Lines(&userID, "")
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	var discount int64
	var appliedCode string
	if req.CouponCode != "" {
		var c *coupon.Coupon
		discount, c, err = s.coupons.EvaluateForUser(req.CouponCode, lines, userID)
		if err != nil {
			return nil, err
		}
		appliedCode = c.Code
	}

	return &PreviewResponse{
		Totals:     ComputeTotals(&s.config.Checkout, lines, shipping, discount),
		CouponCode: appliedCode,
	}, nil
}

// freezeItems snapshots product identity and the cart's unit prices into
// order items. Later catalog edits must not alter the order.
func (s *Service) freezeItems(lines []cart.Line) ([]order.OrderItem, error) {
	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}

	var products []product.Product
	if err := s.db.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	byID := make(map[uint]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]order.OrderItem, 0, len(lines))
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok || !p.IsActive {
			return nil, fmt.Errorf("%w: product %d", cart.ErrProductUnavailable, l.ProductID)
		}
		items = append(items, order.OrderItem{
			ProductID:  l.ProductID,
			SKU:        p.SKU,
			Name:       p.Name,
			Variant:    l.Variant,
			Quantity:   l.Quantity,
			Price:      l.Price,
			TotalPrice: l.Price * int64(l.Quantity),
		})
	}
	return items, nil
}

func parseShippingMethod(raw string) (ShippingMethod, error) {
	switch raw {
	case "", string(ShippingStandard):
		return ShippingStandard, nil
	case string(ShippingExpress):
		return ShippingExpress, nil
	}
	return "", ErrInvalidShippingMethod
}
