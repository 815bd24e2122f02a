package fees

import (
	"sort"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
	"github.com/angelmondragon/marketsync-backend/pkg/tax"
)

// Tier is a shipment-volume bracket. A nil MaxShipments has no upper bound.
type Tier struct {
	MinShipments int
	MaxShipments *int
	Rate         decimal.Decimal
}

// Surcharges are added to the tier rate before VAT.
type Surcharges struct {
	SpecialZone decimal.Decimal
	Oversize    decimal.Decimal
}

func (s Surcharges) Total() decimal.Decimal {
	return s.SpecialZone.Add(s.Oversize)
}

// ShipmentKey identifies an order for shipment counting.
type ShipmentKey struct {
	OrderID int64
	PackID  *int64
}

func (k ShipmentKey) key() int64 {
	if k.PackID != nil && *k.PackID != 0 {
		return *k.PackID
	}
	return k.OrderID
}

// SortTiers returns a copy ordered by MinShipments.
func SortTiers(tiers []Tier) []Tier {
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinShipments < sorted[j].MinShipments
	})
	return sorted
}

// SelectTier returns the tier whose [min, max] range contains count. Counts
// below the first tier use the first tier; counts past the last use the last.
func SelectTier(tiers []Tier, count int) (Tier, error) {
	if len(tiers) == 0 {
		return Tier{}, pkgerrors.New(pkgerrors.CodeValidation, "no rate tiers configured")
	}
	sorted := SortTiers(tiers)
	if count < sorted[0].MinShipments {
		return sorted[0], nil
	}
	for _, tier := range sorted {
		if count < tier.MinShipments {
			continue
		}
		if tier.MaxShipments == nil || count <= *tier.MaxShipments {
			return tier, nil
		}
	}
	// a count inside a gap between tiers falls into the highest tier at or below it
	for i := len(sorted) - 1; i >= 0; i-- {
		if count >= sorted[i].MinShipments {
			return sorted[i], nil
		}
	}
	return sorted[len(sorted)-1], nil
}

// ValidateTiers rejects inverted or overlapping ranges.
func ValidateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one rate tier is required")
	}
	sorted := SortTiers(tiers)
	for i, tier := range sorted {
		if tier.MinShipments < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "min_shipments must not be negative")
		}
		if tier.Rate.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "rate must not be negative")
		}
		if tier.MaxShipments != nil && *tier.MaxShipments < tier.MinShipments {
			return pkgerrors.New(pkgerrors.CodeValidation, "max_shipments must not be below min_shipments").
				WithDetails(map[string]any{"tier": i})
		}
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		if prev.MaxShipments == nil || *prev.MaxShipments >= tier.MinShipments {
			return pkgerrors.New(pkgerrors.CodeValidation, "rate tiers overlap").
				WithDetails(map[string]any{"tier": i, "min_shipments": tier.MinShipments})
		}
	}
	return nil
}

// CountShipments counts unique shipments; orders of one pack count once.
func CountShipments(keys []ShipmentKey) int {
	seen := make(map[int64]struct{}, len(keys))
	for _, k := range keys {
		seen[k.key()] = struct{}{}
	}
	return len(seen)
}

// FlexUnitCost is the VAT-inclusive courier charge for one shipment.
func FlexUnitCost(tier Tier, surcharges Surcharges, calc tax.Calculator) decimal.Decimal {
	return calc.AddIVA(tier.Rate.Add(surcharges.Total()))
}
