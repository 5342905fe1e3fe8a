// internal/domain/order/service.go
package order

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/checkout-backend/internal/config"
	"gorm.io/gorm"
)

// Service handles order persistence and lifecycle operations. Per-order
// mutations go through persistMutation, which couples the status write and
// the history append in one transaction guarded by the version column; a
// concurrent writer surfaces as ErrConflict and the caller re-reads.
type Service struct {
	db     *gorm.DB
	config *config.Config
	now    func() time.Time
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
		now:    time.Now,
	}
}

// ListRequest represents order list query parameters
type ListRequest struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=20"`
	Status    Status `form:"status"`
	UserID    uint   `form:"user_id"`
	SortOrder string `form:"sort_order,default=desc"`
}

// ListResponse represents paginated orders
type ListResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Create persists a new order with its frozen items and the creation history
// entry, inside the caller's transaction. The order must arrive in
// payment_pending with amounts already computed.
func (s *Service) Create(tx *gorm.DB, o *Order) error {
	now := s.now().UTC()
	o.OrderStatus = StatusPaymentPending
	o.PaymentStatus = PaymentPending
	o.FinalAmount = FinalAmount(o.TotalAmount, o.ShippingFee, o.DiscountAmount)

	if err := tx.Create(o).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	o.DisplayID = FormatDisplayID(o.ID, now)
	if err := tx.Model(o).Update("display_id", o.DisplayID).Error; err != nil {
		return fmt.Errorf("failed to set order display id: %w", err)
	}

	entry := StatusEntry{
		OrderID:   o.ID,
		Status:    StatusPaymentPending,
		Message:   "Order placed",
		CreatedBy: o.UserID,
		CreatedAt: now,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to create status history: %w", err)
	}
	o.StatusHistory = append(o.StatusHistory, entry)
	return nil
}

// GetOrder retrieves a single order with items and chronological history
func (s *Service) GetOrder(id uint) (*Order, error) {
	var o Order
	result := s.db.
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		First(&o, id)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", result.Error)
	}
	return &o, nil
}

// GetOrderForUser retrieves an order only if it belongs to the user
func (s *Service) GetOrderForUser(userID, id uint) (*Order, error) {
	o, err := s.GetOrder(id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

// GetByGatewayOrderID retrieves the order carrying a gateway intent id
func (s *Service) GetByGatewayOrderID(gatewayOrderID string) (*Order, error) {
	var o Order
	result := s.db.Preload("Items").Where("payment_gateway_order_id = ?", gatewayOrderID).First(&o)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", result.Error)
	}
	return &o, nil
}

// List retrieves orders with filtering and pagination
func (s *Service) List(req *ListRequest) (*ListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&Order{}).Preload("Items")
	if req.Status != "" {
		query = query.Where("order_status = ?", req.Status)
	}
	if req.UserID > 0 {
		query = query.Where("user_id = ?", req.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	sortOrder := "DESC"
	if req.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	var orders []Order
	offset := (req.Page - 1) * req.Limit
	if err := query.Order("created_at " + sortOrder).Offset(offset).Limit(req.Limit).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &ListResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// UpdateStatus performs an administrator-triggered transition. With override
// set, the legality table is bypassed and the history entry is flagged; this
// is the only way out of a terminal status.
func (s *Service) UpdateStatus(orderID uint, target Status, message string, actor uint, override bool) (*Order, error) {
	o, err := s.loadForMutation(orderID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if override {
		err = Override(o, target, message, actor, now)
	} else {
		err = Transition(o, target, message, actor, now)
	}
	if err != nil {
		return nil, err
	}

	if err := s.persistMutation(o); err != nil {
		return nil, err
	}
	return s.GetOrder(orderID)
}

// Cancel cancels an order through the normal transition path. Cancellation
// never deletes the order or its history, and does not restore cart contents.
func (s *Service) Cancel(orderID uint, actor uint, reason string) (*Order, error) {
	message := "Order cancelled"
	if reason != "" {
		message = fmt.Sprintf("Order cancelled: %s", reason)
	}
	return s.UpdateStatus(orderID, StatusCancelled, message, actor, false)
}

// CancelForUser cancels an order on behalf of its owner
func (s *Service) CancelForUser(userID, orderID uint, reason string) (*Order, error) {
	if _, err := s.GetOrderForUser(userID, orderID); err != nil {
		return nil, err
	}
	return s.Cancel(orderID, userID, reason)
}

// ConfirmGatewayPayment applies a verified gateway confirmation. The order is
// re-fetched here so a confirmation racing a cancellation or a duplicate
// callback lands as a no-op.
func (s *Service) ConfirmGatewayPayment(gatewayOrderID, gatewayPaymentID, signature string) (*Order, error) {
	o, err := s.GetByGatewayOrderID(gatewayOrderID)
	if err != nil {
		return nil, err
	}
	o.StatusHistory = nil // history rows are loaded separately; only fresh entries persist

	if applied := ConfirmPayment(o, gatewayPaymentID, signature, s.now().UTC()); applied {
		if err := s.persistMutation(o); err != nil {
			return nil, err
		}
	}
	return s.GetOrder(o.ID)
}

// ConfirmManualPayment records an out-of-band settlement verified by an administrator
func (s *Service) ConfirmManualPayment(orderID uint, transactionRef string, adminID uint) (*Order, error) {
	o, err := s.loadForMutation(orderID)
	if err != nil {
		return nil, err
	}

	if err := ConfirmManualPayment(o, transactionRef, adminID, s.now().UTC()); err != nil {
		return nil, err
	}

	if err := s.persistMutation(o); err != nil {
		return nil, err
	}
	return s.GetOrder(orderID)
}

// SetPaymentIntent stores a freshly created gateway intent on the order,
// replacing any stale one. Payability is re-validated against this read, not
// the caller's earlier one: the order may have been paid or cancelled while
// the gateway call was in flight.
func (s *Service) SetPaymentIntent(orderID uint, gatewayOrderID string) (*Order, error) {
	o, err := s.loadForMutation(orderID)
	if err != nil {
		return nil, err
	}

	if err := AttachIntent(o, gatewayOrderID, s.now().UTC()); err != nil {
		return nil, err
	}

	if err := s.persistMutation(o); err != nil {
		return nil, err
	}
	return s.GetOrder(orderID)
}

// MarkPaymentFailed records a payment failure reported by the client. Only
// payment_status changes; history entries are reserved for status
// transitions, so the reason goes to the log.
func (s *Service) MarkPaymentFailed(orderID uint, reason string) (*Order, error) {
	o, err := s.loadForMutation(orderID)
	if err != nil {
		return nil, err
	}

	if err := RecordPaymentFailure(o); err != nil {
		return nil, err
	}

	if err := s.persistMutation(o); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id":   o.ID,
		"display_id": o.DisplayID,
		"reason":     reason,
	}).Warn("Payment attempt failed")
	return s.GetOrder(orderID)
}

// Private helper methods

// loadForMutation reads the order without history; entries appended in memory
// afterwards are the ones persistMutation writes.
func (s *Service) loadForMutation(orderID uint) (*Order, error) {
	var o Order
	if err := s.db.First(&o, orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &o, nil
}

// persistMutation writes the mutated order fields and any new history entries
// atomically, guarded by the version read at load time.
func (s *Service) persistMutation(o *Order) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Order{}).
			Where("id = ? AND version = ?", o.ID, o.Version).
			Updates(map[string]interface{}{
				"order_status":               o.OrderStatus,
				"payment_status":             o.PaymentStatus,
				"payment_gateway_order_id":   o.PaymentDetails.GatewayOrderID,
				"payment_gateway_payment_id": o.PaymentDetails.GatewayPaymentID,
				"payment_signature":          o.PaymentDetails.Signature,
				"payment_paid_at":            o.PaymentDetails.PaidAt,
				"manual_transaction_ref":     o.ManualPaymentDetails.TransactionRef,
				"manual_verified_by":         o.ManualPaymentDetails.VerifiedBy,
				"manual_verified_at":         o.ManualPaymentDetails.VerifiedAt,
				"version":                    o.Version + 1,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update order: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrConflict
		}
		o.Version++

		for i := range o.StatusHistory {
			if o.StatusHistory[i].ID != 0 {
				continue // already persisted
			}
			if err := tx.Create(&o.StatusHistory[i]).Error; err != nil {
				return fmt.Errorf("failed to create status history: %w", err)
			}
		}
		return nil
	})
}
