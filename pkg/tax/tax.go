// Package tax extracts and applies VAT (IVA) on gross amounts.
package tax

import "github.com/shopspring/decimal"

// DefaultPercent is the Chilean IVA rate.
const DefaultPercent = 19

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Calculator applies a fixed VAT rate. The zero value is not usable; use NewCalculator.
type Calculator struct {
	rate decimal.Decimal
}

// NewCalculator builds a calculator for the given percent, defaulting to 19 when percent <= 0.
func NewCalculator(percent float64) Calculator {
	if percent <= 0 {
		percent = DefaultPercent
	}
	return Calculator{rate: decimal.NewFromFloat(percent).Div(hundred)}
}

// Rate returns the fractional rate (0.19 for 19%).
func (c Calculator) Rate() decimal.Decimal {
	return c.rate
}

// ExtractIVA returns the VAT contained in a gross amount, rounded to cents.
func (c Calculator) ExtractIVA(gross decimal.Decimal) decimal.Decimal {
	return gross.Sub(gross.Div(one.Add(c.rate))).Round(2)
}

// ExtractNet returns the gross amount without its VAT.
func (c Calculator) ExtractNet(gross decimal.Decimal) decimal.Decimal {
	return gross.Sub(c.ExtractIVA(gross))
}

// AddIVA grosses up a net amount.
func (c Calculator) AddIVA(net decimal.Decimal) decimal.Decimal {
	return net.Mul(one.Add(c.rate)).Round(2)
}

// RemoveIVA divides the VAT out of a gross amount.
func (c Calculator) RemoveIVA(gross decimal.Decimal) decimal.Decimal {
	return gross.Div(one.Add(c.rate)).Round(2)
}
