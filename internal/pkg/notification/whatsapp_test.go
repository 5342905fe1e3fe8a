// internal/pkg/notification/whatsapp_test.go
package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/your-org/checkout-backend/internal/domain/order"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "49.00", FormatAmount(4900))
	assert.Equal(t, "0.05", FormatAmount(5))
	assert.Equal(t, "1234.56", FormatAmount(123456))
	assert.Equal(t, "-12.50", FormatAmount(-1250))
}

func TestBuildOrderSummary(t *testing.T) {
	o := &order.Order{
		DisplayID:      "ORD-20260615-00042",
		ShippingFee:    4900,
		DiscountAmount: 1000,
		DiscountCode:   "SAVE10",
		FinalAmount:    23900,
		Items: []order.OrderItem{
			{Name: "Ceramic Mug", Variant: "Blue", Quantity: 2, TotalPrice: 10000},
			{Name: "Tea Sampler", Quantity: 1, TotalPrice: 10000},
		},
	}

	msg := BuildOrderSummary(o)

	assert.Contains(t, msg, "ORD-20260615-00042")
	assert.Contains(t, msg, "Ceramic Mug (Blue) x2: 100.00")
	assert.Contains(t, msg, "Tea Sampler x1: 100.00")
	assert.Contains(t, msg, "Shipping: 49.00")
	assert.Contains(t, msg, "Discount (SAVE10): -10.00")
	assert.Contains(t, msg, "Total: 239.00")
}

func TestBuildOrderSummaryOmitsAbsentParts(t *testing.T) {
	o := &order.Order{
		DisplayID:   "ORD-20260615-00043",
		FinalAmount: 5000,
		Items: []order.OrderItem{
			{Name: "Sticker Pack", Quantity: 1, TotalPrice: 5000},
		},
	}

	msg := BuildOrderSummary(o)

	assert.NotContains(t, msg, "Shipping:")
	assert.NotContains(t, msg, "Discount")
	assert.Contains(t, msg, "Total: 50.00")
}
