package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CostModel holds the store-wide costs applied to every sale.
type CostModel struct {
	TaxRate                 decimal.Decimal
	FixedCostPerOrder       decimal.Decimal
	OperationalCostPerOrder decimal.Decimal
}

// NewCostModel sums the tax components and amortizes monthly fixed costs
// over the expected monthly order volume.
func NewCostModel(taxComponents []decimal.Decimal, monthlyFixed decimal.Decimal, monthlyOrders int, operational decimal.Decimal) (CostModel, error) {
	if monthlyOrders <= 0 {
		return CostModel{}, fmt.Errorf("monthly orders must be positive, got %d", monthlyOrders)
	}
	if monthlyFixed.IsNegative() {
		return CostModel{}, fmt.Errorf("monthly fixed costs must not be negative: %s", monthlyFixed)
	}
	if operational.IsNegative() {
		return CostModel{}, fmt.Errorf("operational cost must not be negative: %s", operational)
	}

	tax := decimal.Zero
	for _, c := range taxComponents {
		if c.IsNegative() {
			return CostModel{}, fmt.Errorf("tax component must not be negative: %s", c)
		}
		tax = tax.Add(c)
	}
	if tax.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return CostModel{}, fmt.Errorf("tax rate must be below 1, got %s", tax)
	}

	return CostModel{
		TaxRate:                 tax,
		FixedCostPerOrder:       monthlyFixed.Div(decimal.NewFromInt(int64(monthlyOrders))),
		OperationalCostPerOrder: operational,
	}, nil
}
