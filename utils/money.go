package utils

import "github.com/shopspring/decimal"

var (
	decimalZero       = decimal.Zero
	decimalOneHundred = decimal.NewFromInt(100)
	decimalTwo        = decimal.NewFromInt(2)
)

// Round rounds to cents, half away from zero.
// Every stored or returned monetary value passes through here.
func Round(x decimal.Decimal) decimal.Decimal {
	return x.Round(2)
}

// SumRounded sums full precision then rounds once.
func SumRounded(values ...decimal.Decimal) decimal.Decimal {
	total := decimalZero
	for _, v := range values {
		total = total.Add(v)
	}
	return Round(total)
}

// Percent returns Round(part / whole * 100), or zero when whole is not positive.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimalZero
	}
	return Round(part.Mul(decimalOneHundred).Div(whole))
}
