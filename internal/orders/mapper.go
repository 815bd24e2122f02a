package orders

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketsync-backend/internal/fees"
	"github.com/angelmondragon/marketsync-backend/internal/shipping"
	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	"github.com/angelmondragon/marketsync-backend/pkg/enums"
	"github.com/angelmondragon/marketsync-backend/pkg/mercadolibre"
)

// enrichment is everything fetched for one order beyond the search result.
type enrichment struct {
	order    *mercadolibre.Order
	shipment *mercadolibre.Shipment
	costs    *mercadolibre.ShipmentCosts
	billing  mercadolibre.BillingInfo
}

func buyerModel(b mercadolibre.Buyer) *models.Buyer {
	return &models.Buyer{
		ID:        b.ID,
		Nickname:  b.Nickname,
		FirstName: b.FirstName,
		LastName:  b.LastName,
		Email:     b.Email,
	}
}

func orderStatus(raw string) enums.OrderStatus {
	status, err := enums.ParseOrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return enums.OrderStatusInvalid
	}
	return status
}

func paymentStatus(raw string) enums.PaymentStatus {
	status, err := enums.ParsePaymentStatus(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return enums.PaymentStatusPending
	}
	return status
}

func orderModel(sellerID int64, src *mercadolibre.Order, shipment *mercadolibre.Shipment, class shipping.Result) *models.Order {
	order := &models.Order{
		ID:             src.ID,
		SellerID:       sellerID,
		Status:         orderStatus(src.Status),
		StatusDetail:   string(src.StatusDetail),
		DateCreated:    src.DateCreated.UTC(),
		DateClosed:     utcPtr(src.DateClosed),
		LastUpdated:    utcPtr(src.LastUpdated),
		ExpirationDate: utcPtr(src.ExpirationDate),
		TotalAmount:    src.TotalAmount,
		PaidAmount:     src.PaidAmount,
		CurrencyID:     src.CurrencyID,
		PackID:         src.PackID,
		ShippingID:     src.Shipping.ID,
		LogisticType:   class.LogisticType,
	}
	if src.Buyer.ID != 0 {
		buyerID := src.Buyer.ID
		order.BuyerID = &buyerID
	}
	if approved := firstApproval(src.Payments); approved != nil {
		order.DateApproved = approved
	}
	if shipment != nil {
		if order.ShippingID == nil && shipment.ID != 0 {
			id := shipment.ID
			order.ShippingID = &id
		}
		order.ShipmentStatus = shipment.Status
		addr := shipment.ReceiverAddress
		order.ReceiverName = addr.ReceiverName
		order.ReceiverPhone = addr.ReceiverPhone
		order.ReceiverAddress = addr.AddressLine
		order.ReceiverCity = addr.City.Name
		order.ReceiverState = addr.State.Name
	}
	return order
}

func itemModels(src []mercadolibre.OrderItem) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(src))
	for _, it := range src {
		sku := ""
		if it.Item.SellerSKU != nil {
			sku = strings.TrimSpace(*it.Item.SellerSKU)
		}
		out = append(out, models.OrderItem{
			ItemID:        it.Item.ID,
			VariationID:   it.Item.VariationID,
			Title:         it.Item.Title,
			CategoryID:    it.Item.CategoryID,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			FullUnitPrice: it.FullUnitPrice,
			SaleFee:       it.SaleFee,
			CurrencyID:    it.CurrencyID,
			Condition:     it.Item.Condition,
			Warranty:      it.Item.Warranty,
			SellerSKU:     sku,
			Thumbnail:     it.Item.Thumbnail,
		})
	}
	return out
}

// paymentModels assigns the order's derived financials to its primary
// payment; the other payments carry zero so sums stay correct.
func paymentModels(src []mercadolibre.Payment, class shipping.Result, breakdown fees.Breakdown) []models.Payment {
	out := make([]models.Payment, 0, len(src))
	primary := primaryPayment(src)
	for i, p := range src {
		row := models.Payment{
			ID:                p.ID,
			Status:            paymentStatus(p.Status),
			StatusDetail:      p.StatusDetail,
			TransactionAmount: p.TransactionAmount,
			TotalPaidAmount:   p.TotalPaidAmount,
			IVAAmount:         decimal.Zero,
			MarketplaceFee:    decimal.Zero,
			ShippingCost:      decimal.Zero,
			ShippingIncome:    decimal.Zero,
			ShippingBonus:     decimal.Zero,
			CourierCost:       decimal.Zero,
			FaztCost:          decimal.Zero,
			CurrencyID:        p.CurrencyID,
			DateApproved:      utcPtr(p.DateApproved),
			DateCreated:       utcPtr(p.DateCreated),
		}
		if i == primary {
			row.IVAAmount = breakdown.IVA
			row.MarketplaceFee = breakdown.MarketplaceFee
			row.ShippingCost = class.ShippingCost
			row.ShippingIncome = class.ShippingIncome
			row.ShippingBonus = class.ShippingBonus
			row.CourierCost = class.CourierCost
		}
		out = append(out, row)
	}
	return out
}

// primaryPayment is the first approved payment, else the first payment.
func primaryPayment(src []mercadolibre.Payment) int {
	for i, p := range src {
		if paymentStatus(p.Status) == enums.PaymentStatusApproved {
			return i
		}
	}
	if len(src) == 0 {
		return -1
	}
	return 0
}

func firstApproval(src []mercadolibre.Payment) *time.Time {
	for _, p := range src {
		if p.DateApproved != nil {
			return utcPtr(p.DateApproved)
		}
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
