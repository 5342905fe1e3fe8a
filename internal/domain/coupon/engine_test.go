// internal/domain/coupon/engine_test.go
package coupon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/checkout-backend/internal/domain/cart"
)

var evalTime = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func activeCoupon(mutate func(*Coupon)) *Coupon {
	c := &Coupon{
		Code:          "SAVE10",
		DiscountType:  DiscountPercentage,
		DiscountValue: 10,
		StartDate:     evalTime.Add(-24 * time.Hour),
		EndDate:       evalTime.Add(24 * time.Hour),
		UserLimit:     1,
		CouponType:    CouponTypeAll,
		IsActive:      true,
	}
	if mutate != nil {
		mutate(c)
	}
	return c
}

func linesWorth(price int64, qty int) []cart.Line {
	return []cart.Line{{ProductID: 1, Quantity: qty, Price: price}}
}

func TestEvaluatePercentageDiscount(t *testing.T) {
	// One line of qty 2 at 500, SAVE10 with minOrder 500: total 1000 >= 500,
	// discount is 100.
	c := activeCoupon(func(c *Coupon) { c.MinOrderAmount = 500 })

	discount, err := Evaluate(c, linesWorth(500, 2), Shopper{ID: 1}, Usage{}, evalTime)

	require.NoError(t, err)
	assert.Equal(t, int64(100), discount)
}

func TestEvaluateInactive(t *testing.T) {
	c := activeCoupon(func(c *Coupon) { c.IsActive = false })

	_, err := Evaluate(c, linesWorth(500, 2), Shopper{}, Usage{}, evalTime)

	assert.ErrorIs(t, err, ErrCouponInactive)
}

func TestEvaluateOutsideWindow(t *testing.T) {
	notYet := activeCoupon(func(c *Coupon) {
		c.StartDate = evalTime.Add(time.Hour)
		c.EndDate = evalTime.Add(48 * time.Hour)
	})
	_, err := Evaluate(notYet, linesWorth(500, 2), Shopper{}, Usage{}, evalTime)
	assert.ErrorIs(t, err, ErrCouponNotYetValid)

	expired := activeCoupon(func(c *Coupon) {
		c.StartDate = evalTime.Add(-48 * time.Hour)
		c.EndDate = evalTime.Add(-time.Hour)
	})
	_, err = Evaluate(expired, linesWorth(500, 2), Shopper{}, Usage{}, evalTime)
	assert.ErrorIs(t, err, ErrCouponExpired)
}

func TestEvaluateBelowMinimum(t *testing.T) {
	c := activeCoupon(func(c *Coupon) { c.MinOrderAmount = 2000 })

	_, err := Evaluate(c, linesWorth(500, 2), Shopper{}, Usage{}, evalTime)

	assert.ErrorIs(t, err, ErrBelowMinimum)
}

func TestEvaluateGlobalUsageLimit(t *testing.T) {
	c := activeCoupon(func(c *Coupon) { c.UsageLimit = 5 })

	_, err := Evaluate(c, linesWorth(500, 2), Shopper{}, Usage{Total: 5}, evalTime)
	assert.ErrorIs(t, err, ErrUsageLimitReached)

	// Zero usage limit means unlimited
	unlimited := activeCoupon(func(c *Coupon) { c.UsageLimit = 0 })
	_, err = Evaluate(unlimited, linesWorth(500, 2), Shopper{}, Usage{Total: 100000}, evalTime)
	assert.NoError(t, err)
}

func TestEvaluatePerUserLimit(t *testing.T) {
	c := activeCoupon(func(c *Coupon) { c.UserLimit = 2 })

	_, err := Evaluate(c, linesWorth(500, 2), Shopper{ID: 7}, Usage{ByUser: 2}, evalTime)

	assert.ErrorIs(t, err, ErrUserLimitReached)
}

func TestEvaluateNewUsersAudience(t *testing.T) {
	c := activeCoupon(func(c *Coupon) { c.CouponType = CouponTypeNewUsers })

	_, err := Evaluate(c, linesWorth(500, 2), Shopper{ID: 1, CompletedOrders: 3}, Usage{}, evalTime)
	assert.ErrorIs(t, err, ErrNotEligible)

	discount, err := Evaluate(c, linesWorth(500, 2), Shopper{ID: 1, CompletedOrders: 0}, Usage{}, evalTime)
	require.NoError(t, err)
	assert.Equal(t, int64(100), discount)
}

func TestEvaluateRegisteredAfterAudience(t *testing.T) {
	cutoff := evalTime.Add(-30 * 24 * time.Hour)
	c := activeCoupon(func(c *Coupon) {
		c.CouponType = CouponTypeRegisteredAfter
		c.RegisteredAfter = &cutoff
	})

	oldTimer := Shopper{ID: 1, RegisteredAt: cutoff.Add(-time.Hour)}
	_, err := Evaluate(c, linesWorth(500, 2), oldTimer, Usage{}, evalTime)
	assert.ErrorIs(t, err, ErrNotEligible)

	newcomer := Shopper{ID: 2, RegisteredAt: cutoff.Add(time.Hour)}
	_, err = Evaluate(c, linesWorth(500, 2), newcomer, Usage{}, evalTime)
	assert.NoError(t, err)
}

func TestEvaluateSpecificUsersAudience(t *testing.T) {
	c := activeCoupon(func(c *Coupon) {
		c.CouponType = CouponTypeSpecificUsers
		c.SpecificUsers = []uint{4, 5}
	})

	_, err := Evaluate(c, linesWorth(500, 2), Shopper{ID: 9}, Usage{}, evalTime)
	assert.ErrorIs(t, err, ErrNotEligible)

	_, err = Evaluate(c, linesWorth(500, 2), Shopper{ID: 5}, Usage{}, evalTime)
	assert.NoError(t, err)
}

func TestEvaluateSpecificProductsRestrictsSubtotal(t *testing.T) {
	c := activeCoupon(func(c *Coupon) {
		c.CouponType = CouponTypeSpecificProducts
		c.SpecificProducts = []uint{2}
		c.DiscountValue = 50
	})

	lines := []cart.Line{
		{ProductID: 1, Quantity: 1, Price: 10000}, // not listed
		{ProductID: 2, Quantity: 2, Price: 1000},  // listed, subtotal 2000
	}

	discount, err := Evaluate(c, lines, Shopper{ID: 1}, Usage{}, evalTime)

	require.NoError(t, err)
	assert.Equal(t, int64(1000), discount, "50%% of the eligible subtotal only, not the whole cart")

	// Cart without any listed product is not eligible at all
	_, err = Evaluate(c, linesWorth(10000, 1), Shopper{ID: 1}, Usage{}, evalTime)
	assert.ErrorIs(t, err, ErrNotEligible)
}

func TestEvaluateFixedDiscountClampsToSubtotal(t *testing.T) {
	c := activeCoupon(func(c *Coupon) {
		c.DiscountType = DiscountFixed
		c.DiscountValue = 200
	})

	discount, err := Evaluate(c, linesWorth(150, 1), Shopper{}, Usage{}, evalTime)

	require.NoError(t, err)
	assert.Equal(t, int64(150), discount, "fixed discount never exceeds the amount it discounts")
}

func TestEvaluatePercentageCap(t *testing.T) {
	c := activeCoupon(func(c *Coupon) {
		c.DiscountValue = 50
		c.MaxDiscountAmount = 300
	})

	discount, err := Evaluate(c, linesWorth(1000, 2), Shopper{}, Usage{}, evalTime)

	require.NoError(t, err)
	assert.Equal(t, int64(300), discount)
}

func TestEvaluateRoundsToMinorUnit(t *testing.T) {
	c := activeCoupon(func(c *Coupon) { c.DiscountValue = 33 })

	// 33% of 101 = 33.33, rounds to 33
	discount, err := Evaluate(c, linesWorth(101, 1), Shopper{}, Usage{}, evalTime)
	require.NoError(t, err)
	assert.Equal(t, int64(33), discount)

	// 33% of 105 = 34.65, rounds to 35 (standard rounding, not truncation)
	discount, err = Evaluate(c, linesWorth(105, 1), Shopper{}, Usage{}, evalTime)
	require.NoError(t, err)
	assert.Equal(t, int64(35), discount)
}

func TestEvaluateDiscountBound(t *testing.T) {
	coupons := []*Coupon{
		activeCoupon(func(c *Coupon) { c.DiscountValue = 100 }),
		activeCoupon(func(c *Coupon) { c.DiscountType = DiscountFixed; c.DiscountValue = 1e9 }),
		activeCoupon(func(c *Coupon) { c.DiscountValue = 75; c.MaxDiscountAmount = 1 }),
	}
	for _, c := range coupons {
		lines := linesWorth(999, 3)
		discount, err := Evaluate(c, lines, Shopper{}, Usage{}, evalTime)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, discount, int64(0))
		assert.LessOrEqual(t, discount, int64(999*3))
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SAVE10", NormalizeCode("  save10 "))
	assert.Equal(t, "FLAT500", NormalizeCode("Flat500"))
}
