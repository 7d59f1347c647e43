package orders

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(qty int32, price string) LineInput {
	return LineInput{Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func TestComputeTotalsPercentageDiscount(t *testing.T) {
	// 2 x 50 + 1 x 100 = 200, 10% discount = 20, tax 5% of 180 = 9.
	totals := ComputeTotals(
		[]LineInput{line(2, "50.00"), line(1, "100.00")},
		DiscountPercentage, decimal.NewFromInt(10),
	)

	assert.Equal(t, "200.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "20.00", totals.Discount.StringFixed(2))
	assert.Equal(t, "9.00", totals.Tax.StringFixed(2))
	assert.Equal(t, "189.00", totals.Total.StringFixed(2))
}

func TestComputeTotalsFlatDiscount(t *testing.T) {
	totals := ComputeTotals(
		[]LineInput{line(1, "80.00")},
		DiscountFlat, decimal.NewFromInt(30),
	)

	assert.Equal(t, "80.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "30.00", totals.Discount.StringFixed(2))
	assert.Equal(t, "2.50", totals.Tax.StringFixed(2))
	assert.Equal(t, "52.50", totals.Total.StringFixed(2))
}

func TestComputeTotalsNoDiscount(t *testing.T) {
	totals := ComputeTotals([]LineInput{line(3, "10.00")}, "", decimal.Zero)

	assert.Equal(t, "30.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "0.00", totals.Discount.StringFixed(2))
	assert.Equal(t, "1.50", totals.Tax.StringFixed(2))
	assert.Equal(t, "31.50", totals.Total.StringFixed(2))
}

func TestComputeTotalsPercentageCapped(t *testing.T) {
	// 150% discount collapses to the subtotal; total is then just the tax on
	// a zero base.
	totals := ComputeTotals(
		[]LineInput{line(1, "40.00")},
		DiscountPercentage, decimal.NewFromInt(150),
	)

	assert.Equal(t, "40.00", totals.Discount.StringFixed(2))
	assert.Equal(t, "0.00", totals.Tax.StringFixed(2))
	assert.Equal(t, "0.00", totals.Total.StringFixed(2))
}

func TestSplitTax(t *testing.T) {
	totals := ComputeTotals([]LineInput{line(2, "50.00")}, "", decimal.Zero)
	require.Equal(t, "5.00", totals.Tax.StringFixed(2))

	cgst, sgst := totals.SplitTax()
	assert.Equal(t, "2.50", cgst.StringFixed(2))
	assert.Equal(t, "2.50", sgst.StringFixed(2))
	assert.True(t, cgst.Add(sgst).Equal(totals.Tax))
}

func TestSplitTaxOddAmount(t *testing.T) {
	// The halves must recombine exactly even when the tax does not split
	// evenly.
	totals := Totals{Tax: decimal.RequireFromString("0.05")}
	cgst, sgst := totals.SplitTax()
	assert.True(t, cgst.Add(sgst).Equal(totals.Tax))
}
