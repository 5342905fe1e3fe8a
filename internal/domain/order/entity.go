// internal/domain/order/entity.go
package order

import (
	"fmt"
	"time"
)

// Status represents the order lifecycle status
type Status string

const (
	StatusPaymentPending Status = "payment_pending"
	StatusProcessing     Status = "processing"
	StatusShipped        Status = "shipped"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// PaymentStatus represents the payment state of an order
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// PaymentMethod represents how an order is settled
type PaymentMethod string

const (
	// PaymentMethodOnline settles through the payment gateway
	PaymentMethodOnline PaymentMethod = "online"
	// PaymentMethodWhatsApp settles out of band; an administrator confirms the payment
	PaymentMethodWhatsApp PaymentMethod = "whatsapp"
)

// Order is the authoritative record of a placed order. Orders are never
// deleted; cancellation is a status.
type Order struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	DisplayID string `gorm:"uniqueIndex;not null;size:50" json:"display_id"`
	UserID    uint   `gorm:"not null;index" json:"user_id"`

	OrderStatus   Status        `gorm:"not null;default:'payment_pending';index" json:"order_status"`
	PaymentMethod PaymentMethod `gorm:"not null;size:20" json:"payment_method"`
	PaymentStatus PaymentStatus `gorm:"not null;default:'pending'" json:"payment_status"`

	// Financial information, in minor currency units
	TotalAmount    int64  `gorm:"not null" json:"total_amount"`
	ShippingFee    int64  `gorm:"default:0" json:"shipping_fee"`
	DiscountAmount int64  `gorm:"default:0" json:"discount_amount"`
	DiscountCode   string `gorm:"size:50" json:"discount_code,omitempty"`
	FinalAmount    int64  `gorm:"not null" json:"final_amount"`

	PaymentDetails       PaymentDetails       `gorm:"embedded;embeddedPrefix:payment_" json:"payment_details"`
	ManualPaymentDetails ManualPaymentDetails `gorm:"embedded;embeddedPrefix:manual_" json:"manual_payment_details"`
	PaymentExpiresAt     *time.Time           `gorm:"index" json:"payment_expires_at"`

	// Frozen snapshot of the address chosen at checkout
	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`

	// Optimistic concurrency token; every mutation checks and bumps it
	Version int `gorm:"not null;default:1" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items         []OrderItem   `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory []StatusEntry `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem is a frozen copy of a cart line at order-creation time
type OrderItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    uint      `gorm:"not null;index" json:"order_id"`
	ProductID  uint      `gorm:"not null;index" json:"product_id"`
	SKU        string    `gorm:"size:100" json:"sku"`
	Name       string    `gorm:"not null;size:255" json:"name"`
	Variant    string    `gorm:"size:255" json:"variant,omitempty"`
	Quantity   int       `gorm:"not null" json:"quantity"`
	Price      int64     `gorm:"not null" json:"price"`       // Unit price actually charged
	TotalPrice int64     `gorm:"not null" json:"total_price"` // Quantity * Price
	CreatedAt  time.Time `json:"created_at"`
}

// StatusEntry is one append-only status history record. Entries are never
// mutated or truncated; every transition appends exactly one.
type StatusEntry struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	OrderID            uint      `gorm:"not null;index" json:"order_id"`
	Status             Status    `gorm:"not null" json:"status"`
	Message            string    `gorm:"type:text" json:"message"`
	CreatedBy          uint      `gorm:"index" json:"created_by"` // 0 for system-generated entries
	IsCriticalOverride bool      `gorm:"default:false" json:"is_critical_override"`
	CreatedAt          time.Time `json:"created_at"`
}

// PaymentDetails holds the gateway handshake state for online orders
type PaymentDetails struct {
	GatewayOrderID   string     `gorm:"size:255;index" json:"gateway_order_id,omitempty"`
	GatewayPaymentID string     `gorm:"size:255" json:"gateway_payment_id,omitempty"`
	Signature        string     `gorm:"size:255" json:"-"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
}

// ManualPaymentDetails records an out-of-band settlement confirmed by an administrator
type ManualPaymentDetails struct {
	TransactionRef string     `gorm:"size:255" json:"transaction_ref,omitempty"`
	VerifiedBy     uint       `json:"verified_by,omitempty"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`
}

// Address is the frozen shipping address snapshot embedded in an order.
// Later edits to the user's address book must not alter a placed order.
type Address struct {
	Name       string `gorm:"size:200" json:"name"`
	Phone      string `gorm:"size:20" json:"phone"`
	Street     string `gorm:"size:255" json:"street"`
	City       string `gorm:"size:100" json:"city"`
	State      string `gorm:"size:100" json:"state"`
	PostalCode string `gorm:"size:20" json:"postal_code"`
	Country    string `gorm:"size:2" json:"country"`
}

// TableName overrides
func (Order) TableName() string       { return "orders" }
func (OrderItem) TableName() string   { return "order_items" }
func (StatusEntry) TableName() string { return "order_status_history" }

// FormatDisplayID builds the human-facing short code for an order
func FormatDisplayID(orderID uint, at time.Time) string {
	return fmt.Sprintf("ORD-%s-%05d", at.Format("20060102"), orderID)
}

// FinalAmount computes the charged total from its parts, clamped to zero
func FinalAmount(totalAmount, shippingFee, discountAmount int64) int64 {
	final := totalAmount + shippingFee - discountAmount
	if final < 0 {
		return 0
	}
	return final
}

// IsTerminal reports whether the order is in a terminal status
func (o *Order) IsTerminal() bool {
	return o.OrderStatus == StatusDelivered || o.OrderStatus == StatusCancelled
}

// IsPaid reports whether payment has completed
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentCompleted
}

// IsExpired reports whether the payment window has lapsed
func (o *Order) IsExpired(now time.Time) bool {
	return o.PaymentExpiresAt != nil && now.After(*o.PaymentExpiresAt)
}

// Payable reports whether a payment attempt may be opened for this order.
// Callers must re-fetch the order and check this immediately before opening
// any payment flow.
func (o *Order) Payable(now time.Time) bool {
	return o.OrderStatus == StatusPaymentPending && !o.IsPaid() && !o.IsExpired(now)
}
