// internal/domain/coupon/entity.go
package coupon

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// DiscountType represents how a coupon's value is interpreted
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// CouponType represents the audience a coupon is restricted to
type CouponType string

const (
	CouponTypeAll              CouponType = "all"
	CouponTypeNewUsers         CouponType = "new_users"
	CouponTypeSpecificUsers    CouponType = "specific_users"
	CouponTypeSpecificProducts CouponType = "specific_products"
	CouponTypeRegisteredAfter  CouponType = "registered_after"
)

// Coupon represents a promotional discount code. Codes are case-insensitive
// and stored upper-cased.
type Coupon struct {
	ID                uint         `gorm:"primaryKey" json:"id"`
	Code              string       `gorm:"uniqueIndex;not null;size:50" json:"code"`
	DiscountType      DiscountType `gorm:"not null;size:20" json:"discount_type"`
	DiscountValue     float64      `gorm:"not null" json:"discount_value"` // Percent for percentage, minor units for fixed
	MinOrderAmount    int64        `gorm:"default:0" json:"min_order_amount"`
	MaxDiscountAmount int64        `gorm:"default:0" json:"max_discount_amount"` // Percentage-only cap, 0 = uncapped
	StartDate         time.Time    `gorm:"not null" json:"start_date"`
	EndDate           time.Time    `gorm:"not null" json:"end_date"`
	UsageLimit        int          `gorm:"default:0" json:"usage_limit"` // Global, 0 = unlimited
	UserLimit         int          `gorm:"default:1" json:"user_limit"`  // Per-user cap
	CouponType        CouponType   `gorm:"not null;size:30;default:'all'" json:"coupon_type"`
	SpecificUsers     []uint       `gorm:"serializer:json" json:"specific_users,omitempty"`
	SpecificProducts  []uint       `gorm:"serializer:json" json:"specific_products,omitempty"`
	RegisteredAfter   *time.Time   `json:"registered_after,omitempty"`
	IsActive          bool         `gorm:"default:true" json:"is_active"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`

	Redemptions []Redemption `gorm:"foreignKey:CouponID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// Redemption records one use of a coupon against an order. The log is
// append-only and drives both usage limits and aggregate stats.
type Redemption struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CouponID       uint      `gorm:"not null;index" json:"coupon_id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	OrderID        uint      `gorm:"not null;uniqueIndex" json:"order_id"`
	DiscountAmount int64     `gorm:"not null" json:"discount_amount"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName overrides
func (Coupon) TableName() string     { return "coupons" }
func (Redemption) TableName() string { return "coupon_redemptions" }

// BeforeSave normalizes the code to upper case
func (c *Coupon) BeforeSave(tx *gorm.DB) error {
	c.Code = NormalizeCode(c.Code)
	return nil
}

// NormalizeCode canonicalizes a coupon code for lookup and storage
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
