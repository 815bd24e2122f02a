package shipping

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketsync-backend/pkg/enums"
)

// Financials are the per-order amounts that feed net profit.
type Financials struct {
	LogisticType   enums.LogisticType
	Gross          decimal.Decimal
	ShippingCost   decimal.Decimal
	MarketplaceFee decimal.Decimal
	IVA            decimal.Decimal
	FaztCost       decimal.Decimal
	ShippingBonus  decimal.Decimal
	ShippingIncome decimal.Decimal
}

// NetProfit is gross minus costs plus bonus, plus shipping income for
// self-delivered income orders only.
func NetProfit(f Financials) decimal.Decimal {
	net := f.Gross.
		Sub(f.ShippingCost).
		Sub(f.MarketplaceFee).
		Sub(f.IVA).
		Sub(f.FaztCost).
		Add(f.ShippingBonus)
	if f.LogisticType == enums.LogisticTypeSelfService {
		net = net.Add(f.ShippingIncome)
	}
	return net
}

// Margin is net/gross, zero when gross is zero.
func Margin(net, gross decimal.Decimal) decimal.Decimal {
	if gross.IsZero() {
		return decimal.Zero
	}
	return net.DivRound(gross, 4)
}

// Cancellation resolves conflicting signals: mediation beats refund beats a
// cancelled order status.
func Cancellation(orderStatus enums.OrderStatus, payments []enums.PaymentStatus) enums.CancellationKind {
	var refunded bool
	for _, status := range payments {
		switch status {
		case enums.PaymentStatusInMediation:
			return enums.CancellationKindInMediation
		case enums.PaymentStatusRefunded, enums.PaymentStatusChargedBack:
			refunded = true
		}
	}
	if refunded {
		return enums.CancellationKindRefunded
	}
	if orderStatus == enums.OrderStatusCancelled {
		return enums.CancellationKindCancelled
	}
	return enums.CancellationKindNone
}
