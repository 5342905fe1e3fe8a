// internal/domain/checkout/totals_test.go
package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/your-org/checkout-backend/internal/config"
	"github.com/your-org/checkout-backend/internal/domain/cart"
)

var checkoutCfg = config.CheckoutConfig{
	StandardShipping: 4900,
	ExpressShipping:  9900,
	FreeShippingOver: 99900,
}

func TestSubtotal(t *testing.T) {
	lines := []cart.Line{
		{ProductID: 1, Quantity: 2, Price: 500},
		{ProductID: 2, Variant: "Large", Quantity: 1, Price: 1250},
	}
	assert.Equal(t, int64(2250), Subtotal(lines))
	assert.Equal(t, int64(0), Subtotal(nil))
}

func TestShippingFee(t *testing.T) {
	assert.Equal(t, int64(4900), ShippingFee(&checkoutCfg, ShippingStandard, 50000))
	assert.Equal(t, int64(9900), ShippingFee(&checkoutCfg, ShippingExpress, 50000))

	// At or above the threshold shipping is free, regardless of method
	assert.Equal(t, int64(0), ShippingFee(&checkoutCfg, ShippingStandard, 99900))
	assert.Equal(t, int64(0), ShippingFee(&checkoutCfg, ShippingExpress, 150000))

	// Threshold zero disables free shipping
	noFree := checkoutCfg
	noFree.FreeShippingOver = 0
	assert.Equal(t, int64(4900), ShippingFee(&noFree, ShippingStandard, 1000000))
}

func TestComputeTotals(t *testing.T) {
	lines := []cart.Line{{ProductID: 1, Quantity: 2, Price: 10000}}

	totals := ComputeTotals(&checkoutCfg, lines, ShippingStandard, 2000)

	assert.Equal(t, int64(20000), totals.Subtotal)
	assert.Equal(t, int64(4900), totals.ShippingFee)
	assert.Equal(t, int64(2000), totals.Discount)
	assert.Equal(t, int64(22900), totals.FinalAmount)
}

func TestComputeTotalsNeverNegative(t *testing.T) {
	lines := []cart.Line{{ProductID: 1, Quantity: 1, Price: 100}}

	totals := ComputeTotals(&checkoutCfg, lines, ShippingStandard, 100000)

	assert.Equal(t, int64(0), totals.FinalAmount)
}

func TestFreeShippingUsesPreDiscountSubtotal(t *testing.T) {
	// Subtotal clears the threshold; a discount dropping the payable amount
	// below it does not reinstate the fee.
	lines := []cart.Line{{ProductID: 1, Quantity: 1, Price: 100000}}

	totals := ComputeTotals(&checkoutCfg, lines, ShippingStandard, 50000)

	assert.Equal(t, int64(0), totals.ShippingFee)
	assert.Equal(t, int64(50000), totals.FinalAmount)
}
