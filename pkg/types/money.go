package types

import "github.com/shopspring/decimal"

// Cents is a currency amount in the smallest unit. All arithmetic happens on
// integer cents; decimal conversion is reserved for rate math and display.
type Cents int64

// Decimal returns the amount in major units (two fraction digits).
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// String formats the amount with two decimal places, e.g. "2999.00".
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// CentsFromDecimal converts a major-unit amount to cents, rounding half up.
func CentsFromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Shift(2).Round(0).IntPart())
}
