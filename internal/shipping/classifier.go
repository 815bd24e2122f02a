package shipping

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketsync-backend/pkg/enums"
	"github.com/angelmondragon/marketsync-backend/pkg/mercadolibre"
)

// Input is everything known about an order's shipment. Any field may be nil
// when the corresponding upstream call failed.
type Input struct {
	Order                *mercadolibre.Order
	Shipment             *mercadolibre.Shipment
	Costs                *mercadolibre.ShipmentCosts
	FallbackLogisticType enums.LogisticType
}

// Result holds the four per-order shipping figures.
type Result struct {
	LogisticType   enums.LogisticType
	ShippingCost   decimal.Decimal
	ShippingIncome decimal.Decimal
	ShippingBonus  decimal.Decimal
	CourierCost    decimal.Decimal
}

// Classify derives the logistic class and shipping figures of an order.
// Missing data degrades to zero amounts.
func Classify(in Input) Result {
	res := Result{
		LogisticType:   LogisticTypeOf(in),
		ShippingCost:   decimal.Zero,
		ShippingIncome: decimal.Zero,
		ShippingBonus:  decimal.Zero,
		CourierCost:    decimal.Zero,
	}

	sender := firstSender(in.Costs)
	switch res.LogisticType {
	case enums.LogisticTypeSelfService, enums.LogisticTypeSelfServiceCost:
		receiverCost := decimal.Zero
		if in.Costs != nil {
			receiverCost = in.Costs.Receiver.Cost
		}
		if receiverCost.IsZero() && sender != nil && sender.Cost.IsPositive() {
			// free-shipping promotion: the seller pays the courier and the
			// marketplace refunds part of it as a bonus
			res.LogisticType = enums.LogisticTypeSelfServiceCost
			res.CourierCost = sender.Cost
			res.ShippingBonus = promotedAmount(sender)
			return res
		}
		res.LogisticType = enums.LogisticTypeSelfService
		res.ShippingIncome = flexIncome(in, receiverCost)
	default:
		// fulfillment, drop-off and unknown: what the marketplace charges the
		// seller, already net of any "save" discount
		if sender != nil {
			res.ShippingCost = sender.Cost
		}
	}
	return res
}

// LogisticTypeOf picks the logistic class from the shipment, then the order
// stub, then the fallback.
func LogisticTypeOf(in Input) enums.LogisticType {
	candidates := []string{in.Shipment.RawLogisticType()}
	if in.Order != nil {
		candidates = append(candidates, in.Order.Shipping.LogisticType)
	}
	for _, raw := range candidates {
		if lt := enums.NormalizeLogisticType(raw); lt != enums.LogisticTypeUnknown {
			return lt
		}
	}
	if in.FallbackLogisticType.IsValid() {
		return in.FallbackLogisticType
	}
	return enums.LogisticTypeUnknown
}

func firstSender(costs *mercadolibre.ShipmentCosts) *mercadolibre.CostParty {
	if costs == nil || len(costs.Senders) == 0 {
		return nil
	}
	return &costs.Senders[0]
}

func promotedAmount(sender *mercadolibre.CostParty) decimal.Decimal {
	total := decimal.Zero
	for _, d := range sender.Discounts {
		total = total.Add(d.PromotedAmount)
	}
	return total
}

// flexIncome falls back from the cost payload to the shipment option and
// then to the payments' shipping_cost.
func flexIncome(in Input, receiverCost decimal.Decimal) decimal.Decimal {
	if receiverCost.IsPositive() {
		return receiverCost
	}
	if in.Shipment != nil && in.Shipment.ShippingOption.Cost.IsPositive() {
		return in.Shipment.ShippingOption.Cost
	}
	total := decimal.Zero
	if in.Order != nil {
		for _, p := range in.Order.Payments {
			total = total.Add(p.ShippingCost)
		}
	}
	return total
}
