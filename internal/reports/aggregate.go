package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketsync-backend/internal/shipping"
	"github.com/angelmondragon/marketsync-backend/pkg/enums"
)

// bucketOrder is the fixed display order of logistic buckets.
var bucketOrder = []enums.LogisticType{
	enums.LogisticTypeFulfillment,
	enums.LogisticTypeSelfService,
	enums.LogisticTypeSelfServiceCost,
	enums.LogisticTypeDropOff,
	enums.LogisticTypeUnknown,
}

// Totals are the summed figures of a set of orders. Cancelled orders are
// counted but never summed.
type Totals struct {
	Orders         int             `json:"orders"`
	Cancelled      int             `json:"cancelled"`
	Shipments      int             `json:"shipments"`
	Units          int             `json:"units"`
	Gross          decimal.Decimal `json:"gross"`
	MarketplaceFee decimal.Decimal `json:"marketplace_fee"`
	IVA            decimal.Decimal `json:"iva"`
	ShippingCost   decimal.Decimal `json:"shipping_cost"`
	ShippingIncome decimal.Decimal `json:"shipping_income"`
	ShippingBonus  decimal.Decimal `json:"shipping_bonus"`
	CourierCost    decimal.Decimal `json:"courier_cost"`
	FaztCost       decimal.Decimal `json:"fazt_cost"`
	Net            decimal.Decimal `json:"net"`
	Margin         decimal.Decimal `json:"margin"`
}

func zeroTotals() Totals {
	return Totals{
		Gross:          decimal.Zero,
		MarketplaceFee: decimal.Zero,
		IVA:            decimal.Zero,
		ShippingCost:   decimal.Zero,
		ShippingIncome: decimal.Zero,
		ShippingBonus:  decimal.Zero,
		CourierCost:    decimal.Zero,
		FaztCost:       decimal.Zero,
		Net:            decimal.Zero,
		Margin:         decimal.Zero,
	}
}

// Bucket is the totals of one logistic class.
type Bucket struct {
	LogisticType enums.LogisticType `json:"logistic_type"`
	Totals
}

// Report is the aggregated view over a window of orders.
type Report struct {
	SellerID int64          `json:"seller_id"`
	From     time.Time      `json:"from"`
	To       time.Time      `json:"to"`
	Buckets  []Bucket       `json:"buckets"`
	Total    Totals         `json:"total"`
	Orders   []OrderSummary `json:"orders"`
}

// accumulator sums orders and takes shipping-level figures once per pack.
type accumulator struct {
	totals Totals
	packs  map[int64]struct{}
	net    decimal.Decimal
}

func newAccumulator() *accumulator {
	return &accumulator{totals: zeroTotals(), packs: map[int64]struct{}{}, net: decimal.Zero}
}

func (a *accumulator) add(s OrderSummary) {
	a.totals.Orders++
	if s.Cancelled() {
		a.totals.Cancelled++
		return
	}
	a.totals.Units += s.Units
	a.totals.Gross = a.totals.Gross.Add(s.Gross)
	a.totals.MarketplaceFee = a.totals.MarketplaceFee.Add(s.MarketplaceFee)
	a.totals.IVA = a.totals.IVA.Add(s.IVA)

	f := s.financials()
	if _, seen := a.packs[s.PackKey]; seen {
		f.ShippingCost = decimal.Zero
		f.ShippingIncome = decimal.Zero
		f.ShippingBonus = decimal.Zero
		f.FaztCost = decimal.Zero
	} else {
		a.packs[s.PackKey] = struct{}{}
		a.totals.Shipments++
		a.totals.ShippingCost = a.totals.ShippingCost.Add(s.ShippingCost)
		a.totals.ShippingIncome = a.totals.ShippingIncome.Add(s.ShippingIncome)
		a.totals.ShippingBonus = a.totals.ShippingBonus.Add(s.ShippingBonus)
		a.totals.CourierCost = a.totals.CourierCost.Add(s.CourierCost)
		a.totals.FaztCost = a.totals.FaztCost.Add(s.FaztCost)
	}
	a.net = a.net.Add(shipping.NetProfit(f))
}

func (a *accumulator) result() Totals {
	out := a.totals
	out.Net = a.net
	out.Margin = shipping.Margin(out.Net, out.Gross)
	return out
}

// Aggregate buckets summaries by logistic class and computes the grand total.
// Every bucket is present, even when empty.
func Aggregate(summaries []OrderSummary) Report {
	perBucket := make(map[enums.LogisticType]*accumulator, len(bucketOrder))
	for _, lt := range bucketOrder {
		perBucket[lt] = newAccumulator()
	}
	grand := newAccumulator()

	for _, s := range summaries {
		acc, ok := perBucket[s.LogisticType]
		if !ok {
			acc = perBucket[enums.LogisticTypeUnknown]
		}
		acc.add(s)
		grand.add(s)
	}

	report := Report{Orders: summaries, Total: grand.result()}
	for _, lt := range bucketOrder {
		report.Buckets = append(report.Buckets, Bucket{LogisticType: lt, Totals: perBucket[lt].result()})
	}
	if report.Orders == nil {
		report.Orders = []OrderSummary{}
	}
	return report
}

// PackSummary groups the orders shipped together.
type PackSummary struct {
	PackKey        int64              `json:"pack_key"`
	PackID         *int64             `json:"pack_id,omitempty"`
	DateCreated    time.Time          `json:"date_created"`
	LogisticType   enums.LogisticType `json:"logistic_type"`
	Cancelled      bool               `json:"cancelled"`
	Orders         []OrderSummary     `json:"orders"`
	Units          int                `json:"units"`
	Gross          decimal.Decimal    `json:"gross"`
	MarketplaceFee decimal.Decimal    `json:"marketplace_fee"`
	IVA            decimal.Decimal    `json:"iva"`
	ShippingCost   decimal.Decimal    `json:"shipping_cost"`
	ShippingIncome decimal.Decimal    `json:"shipping_income"`
	ShippingBonus  decimal.Decimal    `json:"shipping_bonus"`
	CourierCost    decimal.Decimal    `json:"courier_cost"`
	FaztCost       decimal.Decimal    `json:"fazt_cost"`
	Net            decimal.Decimal    `json:"net"`
	Margin         decimal.Decimal    `json:"margin"`
}

// GroupPacks folds summaries sharing a pack into one entry, newest first.
// Order-level amounts are summed over live orders; shipping-level amounts
// come from the first live order of the pack.
func GroupPacks(summaries []OrderSummary) []PackSummary {
	index := map[int64]int{}
	var packs []PackSummary
	for _, s := range summaries {
		i, ok := index[s.PackKey]
		if !ok {
			i = len(packs)
			index[s.PackKey] = i
			packs = append(packs, PackSummary{
				PackKey:      s.PackKey,
				PackID:       s.PackID,
				DateCreated:  s.DateCreated,
				LogisticType: s.LogisticType,
			})
		}
		p := &packs[i]
		p.Orders = append(p.Orders, s)
		if s.DateCreated.Before(p.DateCreated) {
			p.DateCreated = s.DateCreated
		}
	}

	for i := range packs {
		packs[i].fold()
	}
	sort.SliceStable(packs, func(i, j int) bool {
		if !packs[i].DateCreated.Equal(packs[j].DateCreated) {
			return packs[i].DateCreated.After(packs[j].DateCreated)
		}
		return packs[i].PackKey > packs[j].PackKey
	})
	if packs == nil {
		packs = []PackSummary{}
	}
	return packs
}

func (p *PackSummary) fold() {
	acc := newAccumulator()
	for _, s := range p.Orders {
		acc.add(s)
	}
	t := acc.result()
	p.Cancelled = t.Cancelled == len(p.Orders)
	p.Units = t.Units
	p.Gross = t.Gross
	p.MarketplaceFee = t.MarketplaceFee
	p.IVA = t.IVA
	p.ShippingCost = t.ShippingCost
	p.ShippingIncome = t.ShippingIncome
	p.ShippingBonus = t.ShippingBonus
	p.CourierCost = t.CourierCost
	p.FaztCost = t.FaztCost
	p.Net = t.Net
	p.Margin = t.Margin
}
