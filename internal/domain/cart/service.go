// internal/domain/cart/service.go
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/your-org/checkout-backend/internal/config"
	"github.com/your-org/checkout-backend/internal/domain/product"
	"gorm.io/gorm"
)

// Service handles cart business logic
type Service struct {
	db          *gorm.DB
	redisClient *redis.Client
	config      *config.Config
}

// NewService creates a new cart service
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *Service {
	return &Service{
		db:          db,
		redisClient: redisClient,
		config:      cfg,
	}
}

// CartItemResponse represents a cart line with product details
type CartItemResponse struct {
	ProductID uint             `json:"product_id"`
	Variant   string           `json:"variant,omitempty"`
	Quantity  int              `json:"quantity"`
	Price     int64            `json:"price"`
	Product   *product.Product `json:"product,omitempty"`
}

// CartResponse represents a shopping cart with items and totals
type CartResponse struct {
	SessionID string             `json:"session_id,omitempty"`
	UserID    *uint              `json:"user_id,omitempty"`
	Items     []CartItemResponse `json:"items"`
	Totals    CartTotals         `json:"totals"`
}

// AddToCartRequest represents add to cart request
type AddToCartRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Variant   string `json:"variant"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// UpdateCartItemRequest represents update cart item request
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// GetCart retrieves the cart for a user or guest session
func (s *Service) GetCart(userID *uint, sessionID string) (*CartResponse, error) {
	lines, err := s.currentLines(userID, sessionID)
	if err != nil {
		return nil, err
	}

	items := make([]CartItemResponse, len(lines))
	for i, l := range lines {
		items[i] = CartItemResponse{
			ProductID: l.ProductID,
			Variant:   l.Variant,
			Quantity:  l.Quantity,
			Price:     l.Price,
		}
	}

	s.loadProductDetails(items)

	return &CartResponse{
		SessionID: sessionID,
		UserID:    userID,
		Items:     items,
		Totals:    calculateTotals(lines),
	}, nil
}

// AddToCart adds a line to the cart, summing into an existing line with the
// same identity. An add that would push the line past MaxQuantityPerLine is
// rejected whole; the stored quantity is left unchanged.
func (s *Service) AddToCart(userID *uint, sessionID string, req *AddToCartRequest) (*CartResponse, error) {
	if req.Quantity < 1 || req.Quantity > MaxQuantityPerLine {
		return nil, ErrInvalidQuantity
	}

	price, err := s.snapshotPrice(req.ProductID, req.Variant)
	if err != nil {
		return nil, err
	}

	if userID != nil {
		err = s.addToUserCart(*userID, req.ProductID, req.Variant, req.Quantity, price)
	} else {
		err = s.addToGuestCart(sessionID, req.ProductID, req.Variant, req.Quantity, price)
	}
	if err != nil {
		return nil, err
	}

	return s.GetCart(userID, sessionID)
}

// UpdateItem sets the quantity of an existing line. Quantity 0 is rejected;
// use RemoveItem to delete a line.
func (s *Service) UpdateItem(userID *uint, sessionID string, productID uint, variant string, quantity int) (*CartResponse, error) {
	if quantity < 1 || quantity > MaxQuantityPerLine {
		return nil, ErrInvalidQuantity
	}

	var err error
	if userID != nil {
		result := s.db.Model(&CartItem{}).
			Where("user_id = ? AND product_id = ? AND variant = ?", *userID, productID, variant).
			Update("quantity", quantity)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to update cart item: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrItemNotFound
		}
	} else {
		err = s.mutateGuestCart(sessionID, func(sc *SessionCart) error {
			for i := range sc.Items {
				if sc.Items[i].ProductID == productID && sc.Items[i].Variant == variant {
					sc.Items[i].Quantity = quantity
					return nil
				}
			}
			return ErrItemNotFound
		})
		if err != nil {
			return nil, err
		}
	}

	return s.GetCart(userID, sessionID)
}

// RemoveItem deletes a line from the cart. Removing an absent line is a no-op.
func (s *Service) RemoveItem(userID *uint, sessionID string, productID uint, variant string) (*CartResponse, error) {
	if userID != nil {
		err := s.db.Where("user_id = ? AND product_id = ? AND variant = ?", *userID, productID, variant).
			Delete(&CartItem{}).Error
		if err != nil {
			return nil, fmt.Errorf("failed to remove cart item: %w", err)
		}
	} else {
		err := s.mutateGuestCart(sessionID, func(sc *SessionCart) error {
			for i := range sc.Items {
				if sc.Items[i].ProductID == productID && sc.Items[i].Variant == variant {
					sc.Items = append(sc.Items[:i], sc.Items[i+1:]...)
					break
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return s.GetCart(userID, sessionID)
}

// ClearCart removes all lines from the cart
func (s *Service) ClearCart(userID *uint, sessionID string) error {
	if userID != nil {
		return s.db.Where("user_id = ?", *userID).Delete(&CartItem{}).Error
	}
	ctx := context.Background()
	return s.redisClient.Del(ctx, guestCartKey(sessionID)).Err()
}

// Lines returns the cart content in the storage-neutral form used by checkout
func (s *Service) Lines(userID *uint, sessionID string) ([]Line, error) {
	return s.currentLines(userID, sessionID)
}

// ReconcileOnLogin folds the guest cart into the user's server-held cart.
// A non-empty server cart is authoritative and absorbs the guest lines; an
// empty one adopts the guest cart wholesale. The merged set replaces the
// user's cart atomically and the guest cart is cleared. Invoked exactly once
// per login transition.
func (s *Service) ReconcileOnLogin(userID uint, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	guestCart, err := s.getGuestCart(sessionID)
	if err != nil {
		return err
	}
	if len(guestCart.Items) == 0 {
		return nil
	}

	guestLines := make([]Line, len(guestCart.Items))
	for i, item := range guestCart.Items {
		guestLines[i] = Line{
			ProductID: item.ProductID,
			Variant:   item.Variant,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var existing []CartItem
		if err := tx.Where("user_id = ?", userID).Find(&existing).Error; err != nil {
			return fmt.Errorf("failed to load user cart: %w", err)
		}

		serverLines := make([]Line, len(existing))
		for i, item := range existing {
			serverLines[i] = Line{
				ProductID: item.ProductID,
				Variant:   item.Variant,
				Quantity:  item.Quantity,
				Price:     item.Price,
			}
		}

		merged := Reconcile(guestLines, serverLines)

		// Swap in the merged set as one unit
		if err := tx.Unscoped().Where("user_id = ?", userID).Delete(&CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear user cart: %w", err)
		}
		for _, l := range merged {
			item := CartItem{
				UserID:    userID,
				ProductID: l.ProductID,
				Variant:   l.Variant,
				Quantity:  l.Quantity,
				Price:     l.Price,
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to write merged cart: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.ClearCart(nil, sessionID)
}

// Private helper methods

func (s *Service) currentLines(userID *uint, sessionID string) ([]Line, error) {
	if userID != nil {
		var dbItems []CartItem
		if err := s.db.Where("user_id = ?", *userID).Order("created_at").Find(&dbItems).Error; err != nil {
			return nil, fmt.Errorf("failed to retrieve user cart: %w", err)
		}
		lines := make([]Line, len(dbItems))
		for i, item := range dbItems {
			lines[i] = Line{ProductID: item.ProductID, Variant: item.Variant, Quantity: item.Quantity, Price: item.Price}
		}
		return lines, nil
	}

	sessionCart, err := s.getGuestCart(sessionID)
	if err != nil {
		return nil, err
	}
	lines := make([]Line, len(sessionCart.Items))
	for i, item := range sessionCart.Items {
		lines[i] = Line{ProductID: item.ProductID, Variant: item.Variant, Quantity: item.Quantity, Price: item.Price}
	}
	return lines, nil
}

// snapshotPrice validates the product and resolves the unit price frozen into the line
func (s *Service) snapshotPrice(productID uint, variant string) (int64, error) {
	var prod product.Product
	result := s.db.Where("id = ? AND is_active = ?", productID, true).First(&prod)
	if result.Error != nil {
		return 0, ErrProductUnavailable
	}

	if variant == "" {
		return prod.Price, nil
	}

	var v product.ProductVariant
	result = s.db.Where("product_id = ? AND name = ? AND is_active = ?", productID, variant, true).First(&v)
	if result.Error != nil {
		return 0, ErrProductUnavailable
	}
	return prod.EffectivePrice(&v), nil
}

func (s *Service) addToUserCart(userID, productID uint, variant string, quantity int, price int64) error {
	var existing CartItem
	result := s.db.Where("user_id = ? AND product_id = ? AND variant = ?", userID, productID, variant).First(&existing)

	if result.Error == gorm.ErrRecordNotFound {
		item := CartItem{
			UserID:    userID,
			ProductID: productID,
			Variant:   variant,
			Quantity:  quantity,
			Price:     price,
		}
		return s.db.Create(&item).Error
	} else if result.Error != nil {
		return fmt.Errorf("failed to read cart item: %w", result.Error)
	}

	newQuantity := existing.Quantity + quantity
	if newQuantity > MaxQuantityPerLine {
		return ErrQuantityLimitExceeded
	}

	existing.Quantity = newQuantity
	return s.db.Save(&existing).Error
}

func (s *Service) addToGuestCart(sessionID string, productID uint, variant string, quantity int, price int64) error {
	return s.mutateGuestCart(sessionID, func(sc *SessionCart) error {
		for i := range sc.Items {
			if sc.Items[i].ProductID == productID && sc.Items[i].Variant == variant {
				newQuantity := sc.Items[i].Quantity + quantity
				if newQuantity > MaxQuantityPerLine {
					return ErrQuantityLimitExceeded
				}
				sc.Items[i].Quantity = newQuantity
				return nil
			}
		}
		sc.Items = append(sc.Items, SessionCartItem{
			ProductID: productID,
			Variant:   variant,
			Quantity:  quantity,
			Price:     price,
			AddedAt:   time.Now().UTC(),
		})
		return nil
	})
}

func (s *Service) mutateGuestCart(sessionID string, mutate func(*SessionCart) error) error {
	sessionCart, err := s.getGuestCart(sessionID)
	if err != nil {
		return err
	}
	if err := mutate(sessionCart); err != nil {
		return err
	}
	sessionCart.UpdatedAt = time.Now().UTC()
	return s.saveGuestCart(sessionID, sessionCart)
}

func (s *Service) getGuestCart(sessionID string) (*SessionCart, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID required for guest cart")
	}

	ctx := context.Background()
	cartData, err := s.redisClient.Get(ctx, guestCartKey(sessionID)).Result()
	if err == redis.Nil {
		return &SessionCart{
			SessionID: sessionID,
			Items:     []SessionCartItem{},
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}, nil
	} else if err != nil {
		return nil, err
	}

	var sessionCart SessionCart
	if err := json.Unmarshal([]byte(cartData), &sessionCart); err != nil {
		return nil, err
	}
	return &sessionCart, nil
}

func (s *Service) saveGuestCart(sessionID string, sessionCart *SessionCart) error {
	ctx := context.Background()
	cartData, err := json.Marshal(sessionCart)
	if err != nil {
		return err
	}
	return s.redisClient.Set(ctx, guestCartKey(sessionID), cartData, s.config.Checkout.GuestCartTTL).Err()
}

func (s *Service) loadProductDetails(items []CartItemResponse) {
	for i := range items {
		var prod product.Product
		err := s.db.Where("id = ?", items[i].ProductID).First(&prod).Error
		if err != nil {
			continue // Skip if product not found
		}
		items[i].Product = &prod
	}
}

func calculateTotals(lines []Line) CartTotals {
	var totals CartTotals
	totals.ItemCount = len(lines)
	for _, l := range lines {
		totals.TotalQuantity += l.Quantity
		totals.TotalAmount += l.Price * int64(l.Quantity)
	}
	return totals
}

func guestCartKey(sessionID string) string {
	return fmt.Sprintf("cart:session:%s", sessionID)
}
