// Package reports turns persisted orders into daily and range sales reports.
package reports

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketsync-backend/internal/shipping"
	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	"github.com/angelmondragon/marketsync-backend/pkg/enums"
)

// ItemLine is one sold line of an order summary.
type ItemLine struct {
	ItemID    string          `json:"item_id"`
	Title     string          `json:"title"`
	SellerSKU string          `json:"seller_sku,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderSummary is the financial view of a single order.
type OrderSummary struct {
	OrderID        int64                  `json:"order_id"`
	PackID         *int64                 `json:"pack_id,omitempty"`
	PackKey        int64                  `json:"pack_key"`
	DateCreated    time.Time              `json:"date_created"`
	Status         enums.OrderStatus      `json:"status"`
	LogisticType   enums.LogisticType     `json:"logistic_type"`
	Cancellation   enums.CancellationKind `json:"cancellation"`
	ReceiverCity   string                 `json:"receiver_city,omitempty"`
	Items          []ItemLine             `json:"items"`
	Units          int                    `json:"units"`
	Gross          decimal.Decimal        `json:"gross"`
	MarketplaceFee decimal.Decimal        `json:"marketplace_fee"`
	IVA            decimal.Decimal        `json:"iva"`
	ShippingCost   decimal.Decimal        `json:"shipping_cost"`
	ShippingIncome decimal.Decimal        `json:"shipping_income"`
	ShippingBonus  decimal.Decimal        `json:"shipping_bonus"`
	CourierCost    decimal.Decimal        `json:"courier_cost"`
	FaztCost       decimal.Decimal        `json:"fazt_cost"`
	IsSpecialZone  bool                   `json:"is_special_zone"`
	Net            decimal.Decimal        `json:"net"`
	Margin         decimal.Decimal        `json:"margin"`
}

// Cancelled reports whether the order is left out of financial sums.
func (s OrderSummary) Cancelled() bool {
	return s.Cancellation != enums.CancellationKindNone
}

func (s OrderSummary) financials() shipping.Financials {
	return shipping.Financials{
		LogisticType:   s.LogisticType,
		Gross:          s.Gross,
		ShippingCost:   s.ShippingCost,
		MarketplaceFee: s.MarketplaceFee,
		IVA:            s.IVA,
		FaztCost:       s.FaztCost,
		ShippingBonus:  s.ShippingBonus,
		ShippingIncome: s.ShippingIncome,
	}
}

// Summarize maps an order and its payments into an OrderSummary.
// Payment amounts are summed; the monthly courier cost is written to every
// payment of an order, so it is taken once.
func Summarize(order models.Order, payments []models.Payment) OrderSummary {
	sum := OrderSummary{
		OrderID:        order.ID,
		PackID:         order.PackID,
		PackKey:        order.PackKey(),
		DateCreated:    order.DateCreated,
		Status:         order.Status,
		LogisticType:   order.LogisticType,
		ReceiverCity:   strings.TrimSpace(order.ReceiverCity),
		Gross:          order.TotalAmount,
		MarketplaceFee: decimal.Zero,
		IVA:            decimal.Zero,
		ShippingCost:   decimal.Zero,
		ShippingIncome: decimal.Zero,
		ShippingBonus:  decimal.Zero,
		CourierCost:    decimal.Zero,
		FaztCost:       decimal.Zero,
	}
	if sum.LogisticType == "" {
		sum.LogisticType = enums.LogisticTypeUnknown
	}

	for _, it := range order.Items {
		sum.Items = append(sum.Items, ItemLine{
			ItemID:    it.ItemID,
			Title:     it.Title,
			SellerSKU: it.SellerSKU,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
		sum.Units += it.Quantity
	}

	statuses := make([]enums.PaymentStatus, 0, len(payments))
	for _, p := range payments {
		statuses = append(statuses, p.Status)
		sum.MarketplaceFee = sum.MarketplaceFee.Add(p.MarketplaceFee)
		sum.IVA = sum.IVA.Add(p.IVAAmount)
		sum.ShippingCost = sum.ShippingCost.Add(p.ShippingCost)
		sum.ShippingIncome = sum.ShippingIncome.Add(p.ShippingIncome)
		sum.ShippingBonus = sum.ShippingBonus.Add(p.ShippingBonus)
		sum.CourierCost = sum.CourierCost.Add(p.CourierCost)
		if p.FaztCost.GreaterThan(sum.FaztCost) {
			sum.FaztCost = p.FaztCost
		}
		if p.IsSpecialZone {
			sum.IsSpecialZone = true
		}
	}
	sum.Cancellation = shipping.Cancellation(order.Status, statuses)
	sum.Net = shipping.NetProfit(sum.financials())
	sum.Margin = shipping.Margin(sum.Net, sum.Gross)
	return sum
}

// SummarizeAll summarizes orders loaded with their payments.
func SummarizeAll(orders []models.Order) []OrderSummary {
	out := make([]OrderSummary, 0, len(orders))
	for _, o := range orders {
		out = append(out, Summarize(o, o.Payments))
	}
	return out
}
