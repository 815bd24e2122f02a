package fees

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketsync-backend/pkg/mercadolibre"
	"github.com/angelmondragon/marketsync-backend/pkg/tax"
)

func TestExtractMarketplaceFeeStrategyOrder(t *testing.T) {
	cases := []struct {
		name     string
		src      FeeSources
		want     string
		strategy string
	}{
		{
			name: "payments win",
			src: FeeSources{
				Payments: []mercadolibre.Payment{{MarketplaceFee: decimal.RequireFromString("1200")}, {MarketplaceFee: decimal.RequireFromString("300.5")}},
				Items:    []mercadolibre.OrderItem{{SaleFee: decimal.NewFromInt(999), Quantity: 1}},
			},
			want:     "1500.5",
			strategy: "payment_marketplace_fee",
		},
		{
			name: "items multiply by quantity",
			src: FeeSources{
				Payments: []mercadolibre.Payment{{MarketplaceFee: decimal.Zero}},
				Items:    []mercadolibre.OrderItem{{SaleFee: decimal.NewFromInt(650), Quantity: 3}},
			},
			want:     "1950",
			strategy: "item_sale_fee",
		},
		{
			name: "billing details",
			src: FeeSources{
				Billing: mercadolibre.BillingInfo(`{"details":[{"charge_info":{"detail_type":"CHARGE","detail_sub_type":"CV","detail_amount":-820}},{"type":"shipping","amount":3000}]}`),
			},
			want:     "820",
			strategy: "billing_details",
		},
		{
			name: "billing summary",
			src: FeeSources{
				Billing: mercadolibre.BillingInfo(`{"sale_fee":410.25}`),
			},
			want:     "410.25",
			strategy: "billing_summary",
		},
		{
			name:     "nothing",
			src:      FeeSources{Billing: mercadolibre.BillingInfo(`not json`)},
			want:     "0",
			strategy: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fee, strategy := ExtractMarketplaceFee(tc.src)
			if !fee.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("expected fee %s, got %s", tc.want, fee)
			}
			if strategy != tc.strategy {
				t.Fatalf("expected strategy %q, got %q", tc.strategy, strategy)
			}
		})
	}
}

func TestExtractWithCustomOrder(t *testing.T) {
	src := FeeSources{
		Payments: []mercadolibre.Payment{{MarketplaceFee: decimal.NewFromInt(10)}},
		Items:    []mercadolibre.OrderItem{{SaleFee: decimal.NewFromInt(20), Quantity: 1}},
	}
	fee, name := ExtractWith([]Strategy{DefaultStrategies[1], DefaultStrategies[0]}, src)
	if name != "item_sale_fee" || !fee.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("unexpected %s %s", name, fee)
	}
}

func TestNewBreakdown(t *testing.T) {
	b := NewBreakdown(decimal.NewFromInt(11900), decimal.NewFromInt(1500), tax.NewCalculator(19))
	if !b.IVA.Equal(decimal.NewFromInt(1900)) {
		t.Fatalf("expected iva 1900, got %s", b.IVA)
	}
	if !b.Net.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("expected net 10000, got %s", b.Net)
	}
}
