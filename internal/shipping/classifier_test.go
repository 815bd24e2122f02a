package shipping

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketsync-backend/pkg/enums"
	"github.com/angelmondragon/marketsync-backend/pkg/mercadolibre"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestClassifyFulfillmentUsesSellerCost(t *testing.T) {
	res := Classify(Input{
		Shipment: &mercadolibre.Shipment{LogisticType: "fulfillment"},
		Costs: &mercadolibre.ShipmentCosts{
			GrossAmount: dec("5990"),
			Receiver:    mercadolibre.CostParty{Cost: dec("3990")},
			Senders:     []mercadolibre.CostParty{{Cost: dec("2100")}},
		},
	})
	require.Equal(t, enums.LogisticTypeFulfillment, res.LogisticType)
	require.True(t, res.ShippingCost.Equal(dec("2100")))
	require.True(t, res.ShippingIncome.IsZero())
	require.True(t, res.ShippingBonus.IsZero())
}

func TestClassifyFlexIncome(t *testing.T) {
	res := Classify(Input{
		Shipment: &mercadolibre.Shipment{Logistic: &mercadolibre.Logistic{Type: "self_service"}},
		Costs: &mercadolibre.ShipmentCosts{
			Receiver: mercadolibre.CostParty{Cost: dec("2990"), Discounts: []mercadolibre.Discount{{Type: "loyal", PromotedAmount: dec("500")}}},
			Senders:  []mercadolibre.CostParty{{Cost: dec("0")}},
		},
	})
	require.Equal(t, enums.LogisticTypeSelfService, res.LogisticType)
	require.True(t, res.ShippingIncome.Equal(dec("2990")))
	require.True(t, res.ShippingBonus.IsZero(), "buyer-side discounts are not a bonus")
	require.True(t, res.ShippingCost.IsZero())
}

func TestClassifyFreeShippingFlexBecomesCostSubtype(t *testing.T) {
	res := Classify(Input{
		Shipment: &mercadolibre.Shipment{LogisticType: "self_service"},
		Costs: &mercadolibre.ShipmentCosts{
			Receiver: mercadolibre.CostParty{Cost: dec("0")},
			Senders: []mercadolibre.CostParty{{
				Cost: dec("3500"),
				Discounts: []mercadolibre.Discount{
					{Type: "mandatory", PromotedAmount: dec("1200")},
					{Type: "loyal", PromotedAmount: dec("300")},
				},
			}},
		},
	})
	require.Equal(t, enums.LogisticTypeSelfServiceCost, res.LogisticType)
	require.True(t, res.CourierCost.Equal(dec("3500")))
	require.True(t, res.ShippingBonus.Equal(dec("1500")))
	require.True(t, res.ShippingIncome.IsZero())
}

func TestClassifyFlexIncomeFallbacks(t *testing.T) {
	res := Classify(Input{
		Shipment: &mercadolibre.Shipment{LogisticType: "self_service", ShippingOption: mercadolibre.ShippingOption{Cost: dec("1990")}},
	})
	require.True(t, res.ShippingIncome.Equal(dec("1990")))

	res = Classify(Input{
		Order: &mercadolibre.Order{
			Shipping: mercadolibre.OrderShipping{LogisticType: "self_service"},
			Payments: []mercadolibre.Payment{{ShippingCost: dec("1000")}, {ShippingCost: dec("490")}},
		},
	})
	require.Equal(t, enums.LogisticTypeSelfService, res.LogisticType)
	require.True(t, res.ShippingIncome.Equal(dec("1490")))
}

func TestClassifyDropOffDoesNotReapplySave(t *testing.T) {
	res := Classify(Input{
		Shipment: &mercadolibre.Shipment{LogisticType: "xd_drop_off"},
		Costs: &mercadolibre.ShipmentCosts{
			Senders: []mercadolibre.CostParty{{Cost: dec("1800"), Save: dec("1200")}},
		},
	})
	require.Equal(t, enums.LogisticTypeDropOff, res.LogisticType)
	require.True(t, res.ShippingCost.Equal(dec("1800")))
}

func TestClassifyLogisticPriority(t *testing.T) {
	order := &mercadolibre.Order{Shipping: mercadolibre.OrderShipping{LogisticType: "cross_docking"}}

	res := Classify(Input{Shipment: &mercadolibre.Shipment{LogisticType: "fulfillment"}, Order: order})
	require.Equal(t, enums.LogisticTypeFulfillment, res.LogisticType)

	res = Classify(Input{Order: order, FallbackLogisticType: enums.LogisticTypeFulfillment})
	require.Equal(t, enums.LogisticTypeDropOff, res.LogisticType)

	res = Classify(Input{FallbackLogisticType: enums.LogisticTypeFulfillment})
	require.Equal(t, enums.LogisticTypeFulfillment, res.LogisticType)

	res = Classify(Input{})
	require.Equal(t, enums.LogisticTypeUnknown, res.LogisticType)
	require.True(t, res.ShippingCost.IsZero())
}
