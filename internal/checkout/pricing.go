package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/copperspur/rodeo-backend/internal/payments"
)

// quote is a fully priced order before persistence. All amounts are exact
// two-decimal dollars.
type quote struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
	Lines    []payments.LineItem
}

type quoteLine struct {
	Description string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// priceOrder totals the given lines, applies the tax rate, and adds the
// optional flat shipping charge. A 75.00 subtotal at the 13% rate yields
// 9.75 tax and an 84.75 total.
func priceOrder(lines []quoteLine, taxRate, shipping decimal.Decimal) (quote, error) {
	if len(lines) == 0 {
		return quote{}, fmt.Errorf("pricing requires at least one line")
	}

	subtotal := decimal.Zero
	items := make([]payments.LineItem, 0, len(lines)+2)
	for _, line := range lines {
		if line.Quantity <= 0 {
			return quote{}, fmt.Errorf("line %q has non-positive quantity", line.Description)
		}
		if line.UnitPrice.LessThanOrEqual(decimal.Zero) {
			return quote{}, fmt.Errorf("line %q has non-positive unit price", line.Description)
		}
		unit := line.UnitPrice.Round(2)
		subtotal = subtotal.Add(unit.Mul(decimal.NewFromInt(int64(line.Quantity))))
		items = append(items, payments.LineItem{
			Description: line.Description,
			UnitPrice:   unit,
			Quantity:    line.Quantity,
		})
	}

	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(taxRate).Round(2)
	if tax.IsPositive() {
		items = append(items, payments.LineItem{
			Description: fmt.Sprintf("HST (%s%%)", taxRate.Mul(decimal.NewFromInt(100)).String()),
			UnitPrice:   tax,
			Quantity:    1,
		})
	}

	shipping = shipping.Round(2)
	if shipping.IsPositive() {
		items = append(items, payments.LineItem{
			Description: "Shipping",
			UnitPrice:   shipping,
			Quantity:    1,
		})
	}

	return quote{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
		Lines:    items,
	}, nil
}
