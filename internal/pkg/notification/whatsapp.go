// internal/pkg/notification/whatsapp.go
package notification

import (
	"fmt"
	"strings"

	"github.com/your-org/checkout-backend/internal/domain/order"
)

// BuildOrderSummary renders the prefilled message a customer sends over
// WhatsApp to settle an order out of band. Amounts are formatted from minor
// units with two decimals.
func BuildOrderSummary(o *order.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Hi! I would like to pay for my order %s.\n\n", o.DisplayID)
	for _, item := range o.Items {
		name := item.Name
		if item.Variant != "" {
			name = fmt.Sprintf("%s (%s)", item.Name, item.Variant)
		}
		fmt.Fprintf(&b, "- %s x%d: %s\n", name, item.Quantity, FormatAmount(item.TotalPrice))
	}

	b.WriteString("\n")
	if o.ShippingFee > 0 {
		fmt.Fprintf(&b, "Shipping: %s\n", FormatAmount(o.ShippingFee))
	}
	if o.DiscountAmount > 0 {
		fmt.Fprintf(&b, "Discount (%s): -%s\n", o.DiscountCode, FormatAmount(o.DiscountAmount))
	}
	fmt.Fprintf(&b, "Total: %s", FormatAmount(o.FinalAmount))

	return b.String()
}

// FormatAmount renders minor currency units as a decimal string
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
