package controllers

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketsync-backend/internal/flexcost"
	"github.com/angelmondragon/marketsync-backend/internal/inventory"
	"github.com/angelmondragon/marketsync-backend/internal/mappings"
	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
)

type rateTierDTO struct {
	MinShipments int             `json:"min_shipments" validate:"gte=0"`
	MaxShipments *int            `json:"max_shipments,omitempty"`
	Rate         decimal.Decimal `json:"rate"`
}

type faztConfigurationDTO struct {
	SellerID             int64           `json:"seller_id"`
	ServiceType          string          `json:"service_type"`
	RateTiers            []rateTierDTO   `json:"rate_tiers"`
	SpecialZoneSurcharge decimal.Decimal `json:"special_zone_surcharge"`
	OversizeSurcharge    decimal.Decimal `json:"oversize_surcharge"`
	SpecialZones         []string        `json:"special_zones"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func toFaztConfigurationDTO(cfg *models.FaztConfiguration) faztConfigurationDTO {
	tiers := make([]rateTierDTO, 0, len(cfg.RateTiers))
	for _, t := range cfg.RateTiers {
		tiers = append(tiers, rateTierDTO{MinShipments: t.MinShipments, MaxShipments: t.MaxShipments, Rate: t.Rate})
	}
	zones := []string(cfg.SpecialZones)
	if zones == nil {
		zones = []string{}
	}
	return faztConfigurationDTO{
		SellerID:             cfg.SellerID,
		ServiceType:          cfg.ServiceType,
		RateTiers:            tiers,
		SpecialZoneSurcharge: cfg.SpecialZoneSurcharge,
		OversizeSurcharge:    cfg.OversizeSurcharge,
		SpecialZones:         zones,
		UpdatedAt:            cfg.UpdatedAt,
	}
}

type monthlyFlexCostDTO struct {
	SellerID        int64           `json:"seller_id"`
	Year            int             `json:"year"`
	Month           int             `json:"month"`
	ShipmentCount   int             `json:"shipment_count"`
	NormalCount     int             `json:"normal_count"`
	SpecialCount    int             `json:"special_count"`
	TierRate        decimal.Decimal `json:"tier_rate"`
	NormalUnitCost  decimal.Decimal `json:"normal_unit_cost"`
	SpecialUnitCost decimal.Decimal `json:"special_unit_cost"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	ComputedAt      time.Time       `json:"computed_at"`
}

type recomputeDTO struct {
	Skipped bool                `json:"skipped"`
	Monthly *monthlyFlexCostDTO `json:"monthly,omitempty"`
}

func toRecomputeDTO(res *flexcost.Result) recomputeDTO {
	out := recomputeDTO{Skipped: res.Skipped}
	if m := res.Monthly; m != nil {
		out.Monthly = &monthlyFlexCostDTO{
			SellerID:        m.SellerID,
			Year:            m.Year,
			Month:           m.Month,
			ShipmentCount:   m.ShipmentCount,
			NormalCount:     m.NormalCount,
			SpecialCount:    m.SpecialCount,
			TierRate:        m.TierRate,
			NormalUnitCost:  m.NormalUnitCost,
			SpecialUnitCost: m.SpecialUnitCost,
			TotalCost:       m.TotalCost,
			ComputedAt:      m.ComputedAt,
		}
	}
	return out
}

type quoteDTO struct {
	Shipments int             `json:"shipments"`
	Tier      rateTierDTO     `json:"tier"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	IVA       decimal.Decimal `json:"iva"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

func toQuoteDTO(q *flexcost.Quote) quoteDTO {
	return quoteDTO{
		Shipments: q.Shipments,
		Tier:      rateTierDTO{MinShipments: q.Tier.MinShipments, MaxShipments: q.Tier.MaxShipments, Rate: q.Tier.Rate},
		Subtotal:  q.Subtotal,
		IVA:       q.IVA,
		UnitCost:  q.UnitCost,
	}
}

type pendingSaleDTO struct {
	ID              uuid.UUID       `json:"id"`
	Platform        string          `json:"platform"`
	ExternalOrderID string          `json:"external_order_id"`
	PlatformSKU     string          `json:"platform_sku"`
	Title           string          `json:"title"`
	Quantity        int             `json:"quantity"`
	SaleDate        time.Time       `json:"sale_date"`
	Status          string          `json:"status"`
	ProductID       *int64          `json:"product_id,omitempty"`
	ResolvedBy      *string         `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"`
	RawPayload      json.RawMessage `json:"raw_payload,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func toPendingSaleDTO(p *models.PendingSale) pendingSaleDTO {
	return pendingSaleDTO{
		ID:              p.ID,
		Platform:        p.PlatformID.String(),
		ExternalOrderID: p.ExternalOrderID,
		PlatformSKU:     p.PlatformSKU,
		Title:           p.Title,
		Quantity:        p.Quantity,
		SaleDate:        p.SaleDate,
		Status:          p.Status.String(),
		ProductID:       p.ProductID,
		ResolvedBy:      p.ResolvedBy,
		ResolvedAt:      p.ResolvedAt,
		RawPayload:      p.RawPayload,
		CreatedAt:       p.CreatedAt,
	}
}

type productDTO struct {
	ID          int64           `json:"id"`
	InternalSKU string          `json:"internal_sku"`
	Name        string          `json:"name"`
	Stock       int             `json:"stock"`
	Cost        decimal.Decimal `json:"cost"`
	Price       decimal.Decimal `json:"price"`
}

func toProductDTO(p *models.Product) productDTO {
	return productDTO{
		ID:          p.ID,
		InternalSKU: p.InternalSKU,
		Name:        p.Name,
		Stock:       p.Stock,
		Cost:        p.Cost,
		Price:       p.Price,
	}
}

type mappingDTO struct {
	ID          int64       `json:"id"`
	Platform    string      `json:"platform"`
	PlatformSKU string      `json:"platform_sku"`
	ProductID   int64       `json:"product_id"`
	Quantity    int         `json:"quantity"`
	IsActive    bool        `json:"is_active"`
	Product     *productDTO `json:"product,omitempty"`
}

func toMappingDTO(m *models.ProductMapping) mappingDTO {
	out := mappingDTO{
		ID:          m.ID,
		Platform:    m.PlatformID.String(),
		PlatformSKU: m.PlatformSKU,
		ProductID:   m.ProductID,
		Quantity:    m.Quantity,
		IsActive:    m.IsActive,
	}
	if m.Product != nil {
		p := toProductDTO(m.Product)
		out.Product = &p
	}
	return out
}

type resolvedProductDTO struct {
	Product  productDTO `json:"product"`
	Quantity int        `json:"quantity"`
	Source   string     `json:"source"`
}

func toResolvedDTOs(items []mappings.ResolvedProduct) []resolvedProductDTO {
	out := make([]resolvedProductDTO, 0, len(items))
	for i := range items {
		out = append(out, resolvedProductDTO{
			Product:  toProductDTO(&items[i].Product),
			Quantity: items[i].Quantity,
			Source:   string(items[i].Source),
		})
	}
	return out
}

type historyDTO struct {
	ID               uuid.UUID `json:"id"`
	ProductID        int64     `json:"product_id"`
	Field            string    `json:"field"`
	OldValue         string    `json:"old_value"`
	NewValue         string    `json:"new_value"`
	ChangeType       string    `json:"change_type"`
	AdjustmentAmount *int      `json:"adjustment_amount,omitempty"`
	Actor            string    `json:"actor"`
	Platform         string    `json:"platform,omitempty"`
	ExternalOrderID  *string   `json:"external_order_id,omitempty"`
	Reason           string    `json:"reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func toHistoryDTO(h *models.ProductHistory) historyDTO {
	out := historyDTO{
		ID:               h.ID,
		ProductID:        h.ProductID,
		Field:            h.Field,
		OldValue:         h.OldValue,
		NewValue:         h.NewValue,
		ChangeType:       h.ChangeType.String(),
		AdjustmentAmount: h.AdjustmentAmount,
		Actor:            h.Actor,
		ExternalOrderID:  h.ExternalOrderID,
		Reason:           h.Reason,
		CreatedAt:        h.CreatedAt,
	}
	if h.PlatformID != nil {
		out.Platform = h.PlatformID.String()
	}
	return out
}

type stockChangeDTO struct {
	ProductID int64      `json:"product_id"`
	OldStock  int        `json:"old_stock"`
	NewStock  int        `json:"new_stock"`
	Delta     int        `json:"delta"`
	History   historyDTO `json:"history"`
}

func toStockChangeDTO(c *inventory.Change) stockChangeDTO {
	return stockChangeDTO{
		ProductID: c.ProductID,
		OldStock:  c.OldStock,
		NewStock:  c.NewStock,
		Delta:     c.Delta,
		History:   toHistoryDTO(&c.History),
	}
}

type auditDTO struct {
	ID              uuid.UUID `json:"id"`
	Platform        string    `json:"platform"`
	ExternalOrderID string    `json:"external_order_id"`
	PlatformSKU     string    `json:"platform_sku"`
	ProductID       *int64    `json:"product_id,omitempty"`
	Status          string    `json:"status"`
	Quantity        int       `json:"quantity"`
	Reason          string    `json:"reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func toAuditDTO(a *models.ProductAudit) auditDTO {
	return auditDTO{
		ID:              a.ID,
		Platform:        a.PlatformID.String(),
		ExternalOrderID: a.ExternalOrderID,
		PlatformSKU:     a.PlatformSKU,
		ProductID:       a.ProductID,
		Status:          string(a.Status),
		Quantity:        a.Quantity,
		Reason:          a.Reason,
		CreatedAt:       a.CreatedAt,
	}
}

type auditSummaryDTO struct {
	From     time.Time      `json:"from"`
	To       time.Time      `json:"to"`
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	NotFound []auditDTO     `json:"not_found"`
}
