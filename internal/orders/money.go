package orders

import "github.com/shopspring/decimal"

const (
	DiscountFlat       = "flat"
	DiscountPercentage = "percentage"
)

// Flat-rate tax applied after discount, shown split in half on receipts.
var taxRate = decimal.NewFromFloat(0.05)

type LineInput struct {
	Quantity  int32
	UnitPrice decimal.Decimal
}

type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals derives the monetary fields: subtotal is the sum of
// qty x price, a percentage discount is capped at the subtotal, tax is 5%
// of the discounted base.
func ComputeTotals(lines []LineInput, discountType string, discountValue decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt32(l.Quantity)))
	}

	discount := decimal.Zero
	switch discountType {
	case DiscountFlat:
		discount = discountValue
	case DiscountPercentage:
		discount = subtotal.Mul(discountValue).Div(decimal.NewFromInt(100))
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
	}

	tax := subtotal.Sub(discount).Mul(taxRate)
	total := subtotal.Sub(discount).Add(tax)

	return Totals{Subtotal: subtotal, Discount: discount, Tax: tax, Total: total}
}

// SplitTax halves the tax for the CGST/SGST lines on the printed receipt.
func (t Totals) SplitTax() (decimal.Decimal, decimal.Decimal) {
	half := t.Tax.Div(decimal.NewFromInt(2))
	return half, t.Tax.Sub(half)
}
