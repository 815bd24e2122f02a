package fees

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketsync-backend/pkg/mercadolibre"
)

// FeeSources is everything the marketplace fee can be read from.
type FeeSources struct {
	Payments []mercadolibre.Payment
	Items    []mercadolibre.OrderItem
	Billing  mercadolibre.BillingInfo
}

// Strategy extracts the fee from one source; ok is false when the source has nothing usable.
type Strategy struct {
	Name    string
	Extract func(FeeSources) (decimal.Decimal, bool)
}

// DefaultStrategies is the order fee sources are trusted in.
var DefaultStrategies = []Strategy{
	{Name: "payment_marketplace_fee", Extract: paymentMarketplaceFee},
	{Name: "item_sale_fee", Extract: itemSaleFee},
	{Name: "billing_details", Extract: billingDetails},
	{Name: "billing_summary", Extract: billingSummary},
}

// ExtractMarketplaceFee runs DefaultStrategies and returns the first hit and
// its strategy name, or zero and "" when none matched.
func ExtractMarketplaceFee(src FeeSources) (decimal.Decimal, string) {
	return ExtractWith(DefaultStrategies, src)
}

func ExtractWith(strategies []Strategy, src FeeSources) (decimal.Decimal, string) {
	for _, strategy := range strategies {
		if fee, ok := strategy.Extract(src); ok {
			return fee.Abs().Round(2), strategy.Name
		}
	}
	return decimal.Zero, ""
}

func paymentMarketplaceFee(src FeeSources) (decimal.Decimal, bool) {
	total := decimal.Zero
	for _, p := range src.Payments {
		total = total.Add(p.MarketplaceFee.Abs())
	}
	return total, total.IsPositive()
}

func itemSaleFee(src FeeSources) (decimal.Decimal, bool) {
	total := decimal.Zero
	for _, item := range src.Items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		total = total.Add(item.SaleFee.Abs().Mul(decimal.NewFromInt(int64(qty))))
	}
	return total, total.IsPositive()
}

type billingDetail struct {
	Type       string          `json:"type"`
	SubType    string          `json:"sub_type"`
	Amount     decimal.Decimal `json:"amount"`
	ChargeInfo *struct {
		DetailType    string          `json:"detail_type"`
		DetailSubType string          `json:"detail_sub_type"`
		DetailAmount  decimal.Decimal `json:"detail_amount"`
	} `json:"charge_info"`
}

func (d billingDetail) saleCharge() (decimal.Decimal, bool) {
	types := []string{d.Type, d.SubType}
	amount := d.Amount
	if d.ChargeInfo != nil {
		types = append(types, d.ChargeInfo.DetailType, d.ChargeInfo.DetailSubType)
		if amount.IsZero() {
			amount = d.ChargeInfo.DetailAmount
		}
	}
	for _, t := range types {
		switch strings.ToUpper(strings.TrimSpace(t)) {
		case "CV", "SALE_FEE":
			return amount.Abs(), true
		}
	}
	return decimal.Zero, false
}

func billingDetails(src FeeSources) (decimal.Decimal, bool) {
	if len(src.Billing) == 0 {
		return decimal.Zero, false
	}
	var payload struct {
		Details []billingDetail `json:"details"`
		Results []struct {
			Details []billingDetail `json:"details"`
		} `json:"results"`
	}
	if err := json.Unmarshal(src.Billing, &payload); err != nil {
		return decimal.Zero, false
	}
	details := payload.Details
	for _, r := range payload.Results {
		details = append(details, r.Details...)
	}

	total := decimal.Zero
	found := false
	for _, d := range details {
		if amount, ok := d.saleCharge(); ok {
			total = total.Add(amount)
			found = true
		}
	}
	return total, found && total.IsPositive()
}

func billingSummary(src FeeSources) (decimal.Decimal, bool) {
	if len(src.Billing) == 0 {
		return decimal.Zero, false
	}
	var payload struct {
		SaleFee        *decimal.Decimal `json:"sale_fee"`
		MarketplaceFee *decimal.Decimal `json:"marketplace_fee"`
	}
	if err := json.Unmarshal(src.Billing, &payload); err != nil {
		return decimal.Zero, false
	}
	for _, candidate := range []*decimal.Decimal{payload.SaleFee, payload.MarketplaceFee} {
		if candidate != nil && !candidate.IsZero() {
			return candidate.Abs(), true
		}
	}
	return decimal.Zero, false
}
