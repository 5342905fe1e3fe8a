// internal/domain/checkout/totals.go
package checkout

import (
	"github.com/your-org/checkout-backend/internal/config"
	"github.com/your-org/checkout-backend/internal/domain/cart"
	"github.com/your-org/checkout-backend/internal/domain/order"
)

// ShippingMethod selects the flat shipping rate
type ShippingMethod string

const (
	ShippingStandard ShippingMethod = "standard"
	ShippingExpress  ShippingMethod = "express"
)

// Totals is the full money breakdown of a checkout, in minor units
type Totals struct {
	Subtotal    int64 `json:"subtotal"`
	ShippingFee int64 `json:"shipping_fee"`
	Discount    int64 `json:"discount"`
	FinalAmount int64 `json:"final_amount"`
}

// Subtotal sums price * quantity over all lines
func Subtotal(lines []cart.Line) int64 {
	var total int64
	for _, l := range lines {
		total += l.Price * int64(l.Quantity)
	}
	return total
}

// ShippingFee returns the flat rate for the method. The free-shipping
// threshold compares against the pre-discount subtotal; a threshold of zero
// disables free shipping.
func ShippingFee(cfg *config.CheckoutConfig, method ShippingMethod, subtotal int64) int64 {
	if cfg.FreeShippingOver > 0 && subtotal >= cfg.FreeShippingOver {
		return 0
	}
	if method == ShippingExpress {
		return cfg.ExpressShipping
	}
	return cfg.StandardShipping
}

// ComputeTotals assembles the breakdown from its parts
func ComputeTotals(cfg *config.CheckoutConfig, lines []cart.Line, method ShippingMethod, discount int64) Totals {
	subtotal := Subtotal(lines)
	shipping := ShippingFee(cfg, method, subtotal)
	return Totals{
		Subtotal:    subtotal,
		ShippingFee: shipping,
		Discount:    discount,
		FinalAmount: order.FinalAmount(subtotal, shipping, discount),
	}
}
