// internal/domain/product/entity.go
package product

import (
	"time"

	"gorm.io/gorm"
)

// Product represents a catalog product. The checkout core only consumes
// existence, active flag and the current price; catalog management lives
// elsewhere.
type Product struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	SKU       string         `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name      string         `gorm:"not null;size:255" json:"name"`
	Price     int64          `gorm:"not null" json:"price"` // In minor currency units
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Variants []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"variants,omitempty"`
}

// ProductVariant represents a purchasable variation of a product
type ProductVariant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	Name      string    `gorm:"not null;size:255" json:"name"`
	Price     int64     `json:"price"` // 0 means inherit product price
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Product) TableName() string {
	return "products"
}

// TableName overrides the table name
func (ProductVariant) TableName() string {
	return "product_variants"
}

// EffectivePrice returns the price charged for the given variant, falling
// back to the product price when the variant carries none.
func (p *Product) EffectivePrice(variant *ProductVariant) int64 {
	if variant != nil && variant.Price > 0 {
		return variant.Price
	}
	return p.Price
}
