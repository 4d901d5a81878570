package sales

import "github.com/shopspring/decimal"

// Amounts holds the monetary values derived for a sale.
type Amounts struct {
	Total    decimal.Decimal
	Discount decimal.Decimal
	Final    decimal.Decimal
}

// CalculatePricing derives total, discount and final amounts using exact decimal arithmetic.
// A nil discount percentage means no discount.
func CalculatePricing(unitPrice decimal.Decimal, quantity int, discountPercentage *decimal.Decimal) Amounts {
	pct := decimal.Zero
	if discountPercentage != nil {
		pct = *discountPercentage
	}
	total := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	// Shift(-2) divides by 100 without the rounding Div applies.
	discount := total.Mul(pct).Shift(-2)
	return Amounts{
		Total:    total,
		Discount: discount,
		Final:    total.Sub(discount),
	}
}
