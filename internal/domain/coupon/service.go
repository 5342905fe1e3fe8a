// internal/domain/coupon/service.go
package coupon

import (
	"fmt"
	"time"

	"github.com/your-org/checkout-backend/internal/config"
	"github.com/your-org/checkout-backend/internal/domain/cart"
	"github.com/your-org/checkout-backend/internal/domain/order"
	"github.com/your-org/checkout-backend/internal/domain/user"
	"gorm.io/gorm"
)

// Service handles coupon lookup, evaluation and redemption bookkeeping
type Service struct {
	db     *gorm.DB
	config *config.Config
	now    func() time.Time
}

// NewService creates a new coupon service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
		now:    time.Now,
	}
}

// CreateCouponRequest represents administrative coupon creation data
type CreateCouponRequest struct {
	Code              string     `json:"code" binding:"required"`
	DiscountType      string     `json:"discount_type" binding:"required,oneof=percentage fixed"`
	DiscountValue     float64    `json:"discount_value" binding:"required,gt=0"`
	MinOrderAmount    int64      `json:"min_order_amount"`
	MaxDiscountAmount int64      `json:"max_discount_amount"`
	StartDate         time.Time  `json:"start_date" binding:"required"`
	EndDate           time.Time  `json:"end_date" binding:"required"`
	UsageLimit        int        `json:"usage_limit"`
	UserLimit         int        `json:"user_limit"`
	CouponType        string     `json:"coupon_type" binding:"omitempty,oneof=all new_users specific_users specific_products registered_after"`
	SpecificUsers     []uint     `json:"specific_users"`
	SpecificProducts  []uint     `json:"specific_products"`
	RegisteredAfter   *time.Time `json:"registered_after"`
	IsActive          *bool      `json:"is_active"`
}

// Stats aggregates the redemption log for one coupon
type Stats struct {
	CouponID         uint  `json:"coupon_id"`
	TotalRedemptions int64 `json:"total_redemptions"`
	TotalDiscount    int64 `json:"total_discount"`
	TotalRevenue     int64 `json:"total_revenue"` // Final amounts of orders the coupon was redeemed on
}

// FindByCode retrieves a coupon by its case-insensitive code
func (s *Service) FindByCode(code string) (*Coupon, error) {
	var c Coupon
	err := s.db.Where("code = ?", NormalizeCode(code)).First(&c).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to retrieve coupon: %w", err)
	}
	return &c, nil
}

// EvaluateForUser resolves the code, gathers usage counts and shopper facts,
// and runs the evaluation. It never consumes usage; redemptions are recorded
// by Redeem at order placement.
func (s *Service) EvaluateForUser(code string, lines []cart.Line, userID uint) (int64, *Coupon, error) {
	c, err := s.FindByCode(code)
	if err != nil {
		return 0, nil, err
	}

	usage, err := s.usageCounts(c.ID, userID)
	if err != nil {
		return 0, nil, err
	}

	shopper, err := s.shopperFacts(userID)
	if err != nil {
		return 0, nil, err
	}

	discount, err := Evaluate(c, lines, shopper, usage, s.now())
	if err != nil {
		return 0, nil, err
	}
	return discount, c, nil
}

// Redeem appends a redemption record within the caller's transaction. Called
// exactly once per placed order carrying a coupon.
func (s *Service) Redeem(tx *gorm.DB, c *Coupon, userID, orderID uint, discountAmount int64) error {
	redemption := Redemption{
		CouponID:       c.ID,
		UserID:         userID,
		OrderID:        orderID,
		DiscountAmount: discountAmount,
	}
	if err := tx.Create(&redemption).Error; err != nil {
		return fmt.Errorf("failed to record coupon redemption: %w", err)
	}
	return nil
}

// CreateCoupon creates a coupon (administrative)
func (s *Service) CreateCoupon(req *CreateCouponRequest) (*Coupon, error) {
	if !req.EndDate.After(req.StartDate) {
		return nil, fmt.Errorf("end date must be after start date")
	}

	c := Coupon{
		Code:              NormalizeCode(req.Code),
		DiscountType:      DiscountType(req.DiscountType),
		DiscountValue:     req.DiscountValue,
		MinOrderAmount:    req.MinOrderAmount,
		MaxDiscountAmount: req.MaxDiscountAmount,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		UsageLimit:        req.UsageLimit,
		UserLimit:         req.UserLimit,
		CouponType:        CouponTypeAll,
		SpecificUsers:     req.SpecificUsers,
		SpecificProducts:  req.SpecificProducts,
		RegisteredAfter:   req.RegisteredAfter,
		IsActive:          true,
	}
	if req.CouponType != "" {
		c.CouponType = CouponType(req.CouponType)
	}
	if req.UserLimit == 0 {
		c.UserLimit = 1
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}

	if err := s.db.Create(&c).Error; err != nil {
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}
	return &c, nil
}

// UpdateCoupon replaces a coupon's rule fields (administrative)
func (s *Service) UpdateCoupon(id uint, req *CreateCouponRequest) (*Coupon, error) {
	var c Coupon
	if err := s.db.First(&c, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to retrieve coupon: %w", err)
	}

	c.Code = NormalizeCode(req.Code)
	c.DiscountType = DiscountType(req.DiscountType)
	c.DiscountValue = req.DiscountValue
	c.MinOrderAmount = req.MinOrderAmount
	c.MaxDiscountAmount = req.MaxDiscountAmount
	c.StartDate = req.StartDate
	c.EndDate = req.EndDate
	c.UsageLimit = req.UsageLimit
	c.UserLimit = req.UserLimit
	if req.CouponType != "" {
		c.CouponType = CouponType(req.CouponType)
	}
	c.SpecificUsers = req.SpecificUsers
	c.SpecificProducts = req.SpecificProducts
	c.RegisteredAfter = req.RegisteredAfter
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}

	if err := s.db.Save(&c).Error; err != nil {
		return nil, fmt.Errorf("failed to update coupon: %w", err)
	}
	return &c, nil
}

// ListCoupons returns all coupons (administrative)
func (s *Service) ListCoupons() ([]Coupon, error) {
	var coupons []Coupon
	if err := s.db.Order("created_at DESC").Find(&coupons).Error; err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	return coupons, nil
}

// GetStats aggregates usage, discount and attributed revenue for one coupon
func (s *Service) GetStats(couponID uint) (*Stats, error) {
	var c Coupon
	if err := s.db.First(&c, couponID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to retrieve coupon: %w", err)
	}

	stats := Stats{CouponID: couponID}

	if err := s.db.Model(&Redemption{}).Where("coupon_id = ?", couponID).
		Count(&stats.TotalRedemptions).Error; err != nil {
		return nil, fmt.Errorf("failed to count redemptions: %w", err)
	}

	type sums struct {
		Discount int64
		Revenue  int64
	}
	var agg sums
	err := s.db.Table("coupon_redemptions").
		Select("COALESCE(SUM(coupon_redemptions.discount_amount), 0) AS discount, COALESCE(SUM(orders.final_amount), 0) AS revenue").
		Joins("JOIN orders ON orders.id = coupon_redemptions.order_id").
		Where("coupon_redemptions.coupon_id = ?", couponID).
		Scan(&agg).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate redemptions: %w", err)
	}

	stats.TotalDiscount = agg.Discount
	stats.TotalRevenue = agg.Revenue
	return &stats, nil
}

// Private helper methods

func (s *Service) usageCounts(couponID, userID uint) (Usage, error) {
	var usage Usage

	var total int64
	if err := s.db.Model(&Redemption{}).Where("coupon_id = ?", couponID).Count(&total).Error; err != nil {
		return usage, fmt.Errorf("failed to count coupon usage: %w", err)
	}

	var byUser int64
	if err := s.db.Model(&Redemption{}).Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&byUser).Error; err != nil {
		return usage, fmt.Errorf("failed to count user coupon usage: %w", err)
	}

	usage.Total = int(total)
	usage.ByUser = int(byUser)
	return usage, nil
}

func (s *Service) shopperFacts(userID uint) (Shopper, error) {
	var u user.User
	if err := s.db.First(&u, userID).Error; err != nil {
		return Shopper{}, fmt.Errorf("failed to retrieve user: %w", err)
	}

	// A completed order means delivered; a paid but undelivered order still
	// counts the shopper as new for new_users coupons.
	var completed int64
	err := s.db.Model(&order.Order{}).
		Where("user_id = ? AND order_status = ?", userID, order.StatusDelivered).
		Count(&completed).Error
	if err != nil {
		return Shopper{}, fmt.Errorf("failed to count completed orders: %w", err)
	}

	return Shopper{
		ID:              userID,
		RegisteredAt:    u.CreatedAt,
		CompletedOrders: int(completed),
	}, nil
}
