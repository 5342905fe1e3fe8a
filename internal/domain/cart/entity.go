// internal/domain/cart/entity.go
package cart

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// MaxQuantityPerLine caps how many units of one product+variant a cart may hold
const MaxQuantityPerLine = 10

var (
	// ErrQuantityLimitExceeded is returned when an add would push a line past MaxQuantityPerLine
	ErrQuantityLimitExceeded = errors.New("quantity limit exceeded: at most 10 units per item")
	// ErrInvalidQuantity is returned for zero or negative quantities. Quantity 0 on
	// update is rejected deliberately; callers must remove the line instead.
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 10")
	// ErrProductUnavailable is returned when the referenced product or variant does not exist or is inactive
	ErrProductUnavailable = errors.New("product not found or inactive")
	// ErrItemNotFound is returned when updating a line that is not in the cart
	ErrItemNotFound = errors.New("item not found in cart")
)

// CartItem represents a cart line stored in database for authenticated users.
// The (UserID, ProductID, Variant) triple is the line's identity.
type CartItem struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index:idx_cart_identity,unique" json:"user_id"`
	ProductID uint           `gorm:"not null;index:idx_cart_identity,unique" json:"product_id"`
	Variant   string         `gorm:"size:255;index:idx_cart_identity,unique" json:"variant,omitempty"`
	Quantity  int            `gorm:"not null;default:1" json:"quantity"`
	Price     int64          `gorm:"not null" json:"price"` // Unit price snapshot at add-time
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (CartItem) TableName() string {
	return "cart_items"
}

// SessionCart represents a cart for guest users (stored in Redis)
type SessionCart struct {
	SessionID string            `json:"session_id"`
	Items     []SessionCartItem `json:"items"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// SessionCartItem represents a cart line for guest users
type SessionCartItem struct {
	ProductID uint      `json:"product_id"`
	Variant   string    `json:"variant,omitempty"`
	Quantity  int       `json:"quantity"`
	Price     int64     `json:"price"`
	AddedAt   time.Time `json:"added_at"`
}

// CartTotals represents calculated cart totals. These are always derived from
// the lines, never stored.
type CartTotals struct {
	ItemCount     int   `json:"item_count"`     // Number of distinct lines
	TotalQuantity int   `json:"total_quantity"` // Sum of all quantities
	TotalAmount   int64 `json:"total_amount"`   // Sum of price * quantity
}
