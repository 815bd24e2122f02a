package fees

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketsync-backend/pkg/tax"
)

// Breakdown splits a VAT-inclusive gross amount.
type Breakdown struct {
	Gross          decimal.Decimal
	IVA            decimal.Decimal
	Net            decimal.Decimal
	MarketplaceFee decimal.Decimal
}

func NewBreakdown(gross, marketplaceFee decimal.Decimal, calc tax.Calculator) Breakdown {
	iva := calc.ExtractIVA(gross)
	return Breakdown{
		Gross:          gross,
		IVA:            iva,
		Net:            gross.Sub(iva),
		MarketplaceFee: marketplaceFee,
	}
}
