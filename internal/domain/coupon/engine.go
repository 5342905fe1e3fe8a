// internal/domain/coupon/engine.go
package coupon

import (
	"errors"
	"math"
	"time"

	"github.com/your-org/checkout-backend/internal/domain/cart"
)

// Typed evaluation failures. The HTTP layer surfaces these verbatim, so each
// carries a specific, actionable reason.
var (
	ErrCouponNotFound    = errors.New("invalid coupon code")
	ErrCouponInactive    = errors.New("coupon is not active")
	ErrCouponNotYetValid = errors.New("coupon is not yet valid")
	ErrCouponExpired     = errors.New("coupon has expired")
	ErrBelowMinimum      = errors.New("cart total is below the minimum order amount for this coupon")
	ErrUsageLimitReached = errors.New("coupon has been used the maximum number of times")
	ErrUserLimitReached  = errors.New("you have already used this coupon the maximum number of times")
	ErrNotEligible       = errors.New("this coupon is not applicable to your account or cart")
)

// Shopper carries the user facts the audience rules consume
type Shopper struct {
	ID              uint
	RegisteredAt    time.Time
	CompletedOrders int
}

// Usage carries redemption counts for one coupon at evaluation time
type Usage struct {
	Total  int // All redemptions of this coupon
	ByUser int // Redemptions by the evaluating shopper
}

// Audience is the closed set of eligibility rules a coupon can carry. Each
// variant holds only the data it needs. EligibleSubtotal returns the portion
// of the cart the discount may apply to; for most audiences that is the full
// cart total.
type Audience interface {
	Eligible(shopper Shopper, lines []cart.Line) error
	EligibleSubtotal(lines []cart.Line) int64
}

// AudienceAll admits every shopper
type AudienceAll struct{}

func (AudienceAll) Eligible(Shopper, []cart.Line) error { return nil }
func (AudienceAll) EligibleSubtotal(lines []cart.Line) int64 {
	return linesTotal(lines)
}

// AudienceNewUsers admits shoppers with no prior completed orders
type AudienceNewUsers struct{}

func (AudienceNewUsers) Eligible(shopper Shopper, _ []cart.Line) error {
	if shopper.CompletedOrders > 0 {
		return ErrNotEligible
	}
	return nil
}
func (AudienceNewUsers) EligibleSubtotal(lines []cart.Line) int64 {
	return linesTotal(lines)
}

// AudienceRegisteredAfter admits shoppers registered on or after a cutoff date
type AudienceRegisteredAfter struct {
	Date time.Time
}

func (a AudienceRegisteredAfter) Eligible(shopper Shopper, _ []cart.Line) error {
	if shopper.RegisteredAt.Before(a.Date) {
		return ErrNotEligible
	}
	return nil
}
func (AudienceRegisteredAfter) EligibleSubtotal(lines []cart.Line) int64 {
	return linesTotal(lines)
}

// AudienceSpecificUsers admits an explicit list of user ids
type AudienceSpecificUsers struct {
	IDs []uint
}

func (a AudienceSpecificUsers) Eligible(shopper Shopper, _ []cart.Line) error {
	for _, id := range a.IDs {
		if id == shopper.ID {
			return nil
		}
	}
	return ErrNotEligible
}
func (AudienceSpecificUsers) EligibleSubtotal(lines []cart.Line) int64 {
	return linesTotal(lines)
}

// AudienceSpecificProducts admits carts containing at least one listed
// product, and restricts the discount to the listed products' subtotal.
type AudienceSpecificProducts struct {
	IDs []uint
}

func (a AudienceSpecificProducts) Eligible(_ Shopper, lines []cart.Line) error {
	if a.EligibleSubtotal(lines) == 0 {
		return ErrNotEligible
	}
	return nil
}

func (a AudienceSpecificProducts) EligibleSubtotal(lines []cart.Line) int64 {
	listed := make(map[uint]bool, len(a.IDs))
	for _, id := range a.IDs {
		listed[id] = true
	}
	var subtotal int64
	for _, l := range lines {
		if listed[l.ProductID] {
			subtotal += l.Price * int64(l.Quantity)
		}
	}
	return subtotal
}

// Audience resolves the coupon's stored type into its rule variant. Unknown
// types fall back to AudienceAll so a bad row rejects nothing it should not.
func (c *Coupon) Audience() Audience {
	switch c.CouponType {
	case CouponTypeNewUsers:
		return AudienceNewUsers{}
	case CouponTypeRegisteredAfter:
		if c.RegisteredAfter == nil {
			return AudienceAll{}
		}
		return AudienceRegisteredAfter{Date: *c.RegisteredAfter}
	case CouponTypeSpecificUsers:
		return AudienceSpecificUsers{IDs: c.SpecificUsers}
	case CouponTypeSpecificProducts:
		return AudienceSpecificProducts{IDs: c.SpecificProducts}
	default:
		return AudienceAll{}
	}
}

// Evaluate determines eligibility and computes the discount for a coupon
// against a cart snapshot. It is side-effect free and may be called
// repeatedly to preview a discount without consuming usage; redemptions are
// recorded only at order placement.
//
// Checks short-circuit in a fixed order: activity and time window, minimum
// order amount, global usage, per-user usage, audience rule, then discount
// computation against the eligible subtotal.
func Evaluate(c *Coupon, lines []cart.Line, shopper Shopper, usage Usage, now time.Time) (int64, error) {
	if !c.IsActive {
		return 0, ErrCouponInactive
	}
	if now.Before(c.StartDate) {
		return 0, ErrCouponNotYetValid
	}
	if now.After(c.EndDate) {
		return 0, ErrCouponExpired
	}

	cartTotal := linesTotal(lines)
	if cartTotal < c.MinOrderAmount {
		return 0, ErrBelowMinimum
	}

	if c.UsageLimit > 0 && usage.Total >= c.UsageLimit {
		return 0, ErrUsageLimitReached
	}
	if c.UserLimit > 0 && usage.ByUser >= c.UserLimit {
		return 0, ErrUserLimitReached
	}

	audience := c.Audience()
	if err := audience.Eligible(shopper, lines); err != nil {
		return 0, err
	}

	eligibleSubtotal := audience.EligibleSubtotal(lines)
	return computeDiscount(c, eligibleSubtotal), nil
}

// computeDiscount applies the discount type to the eligible subtotal. The
// result is rounded to the minor unit and never exceeds the subtotal it
// discounts.
func computeDiscount(c *Coupon, eligibleSubtotal int64) int64 {
	var discount int64
	switch c.DiscountType {
	case DiscountFixed:
		discount = int64(math.Round(c.DiscountValue))
	case DiscountPercentage:
		discount = int64(math.Round(float64(eligibleSubtotal) * c.DiscountValue / 100))
		if c.MaxDiscountAmount > 0 && discount > c.MaxDiscountAmount {
			discount = c.MaxDiscountAmount
		}
	}

	if discount > eligibleSubtotal {
		discount = eligibleSubtotal
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

func linesTotal(lines []cart.Line) int64 {
	var total int64
	for _, l := range lines {
		total += l.Price * int64(l.Quantity)
	}
	return total
}
