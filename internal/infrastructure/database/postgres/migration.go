// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/checkout-backend/internal/domain/cart"
	"github.com/your-org/checkout-backend/internal/domain/coupon"
	"github.com/your-org/checkout-backend/internal/domain/order"
	"github.com/your-org/checkout-backend/internal/domain/product"
	"github.com/your-org/checkout-backend/internal/domain/user"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{db: db}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	logrus.Info("Running database auto-migrations")

	// Dependency order: base tables first
	models := []interface{}{
		&user.User{},
		&user.Address{},

		&product.Product{},
		&product.ProductVariant{},

		&cart.CartItem{},

		&coupon.Coupon{},

		&order.Order{},
		&order.OrderItem{},
		&order.StatusEntry{},

		// References orders, must come after
		&coupon.Redemption{},
	}

	for _, model := range models {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	logrus.Info("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates additional indexes beyond what the model tags declare
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, order_status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(order_status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_pending_expiry ON orders(order_status, payment_expires_at)",
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order_created ON order_status_history(order_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_coupon_redemptions_coupon_user ON coupon_redemptions(coupon_id, user_id)",
		"CREATE INDEX IF NOT EXISTS idx_cart_items_user ON cart_items(user_id)",
	}

	for _, idx := range indexes {
		if err := m.db.Exec(idx).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
