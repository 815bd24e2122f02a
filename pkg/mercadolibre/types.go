package mercadolibre

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Paging is the offset/limit envelope returned by search endpoints.
type Paging struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// SearchResult is one page of /orders/search.
type SearchResult struct {
	Results []Order `json:"results"`
	Paging  Paging  `json:"paging"`
}

// Text decodes fields the API sends either as a string or as a {code, description} object.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var obj struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.Description != "" {
		*t = Text(obj.Description)
	} else {
		*t = Text(obj.Code)
	}
	return nil
}

type Order struct {
	ID             int64           `json:"id"`
	Status         string          `json:"status"`
	StatusDetail   Text            `json:"status_detail"`
	DateCreated    time.Time       `json:"date_created"`
	DateClosed     *time.Time      `json:"date_closed"`
	LastUpdated    *time.Time      `json:"last_updated"`
	ExpirationDate *time.Time      `json:"expiration_date"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	CurrencyID     string          `json:"currency_id"`
	PackID         *int64          `json:"pack_id"`
	Buyer          Buyer           `json:"buyer"`
	Seller         Seller          `json:"seller"`
	OrderItems     []OrderItem     `json:"order_items"`
	Payments       []Payment       `json:"payments"`
	Shipping       OrderShipping   `json:"shipping"`
	Tags           []string        `json:"tags"`
}

type Buyer struct {
	ID        int64  `json:"id"`
	Nickname  string `json:"nickname"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type Seller struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
}

type OrderItem struct {
	Item          Item            `json:"item"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	FullUnitPrice decimal.Decimal `json:"full_unit_price"`
	SaleFee       decimal.Decimal `json:"sale_fee"`
	CurrencyID    string          `json:"currency_id"`
}

type Item struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	CategoryID  string  `json:"category_id"`
	VariationID *int64  `json:"variation_id"`
	SellerSKU   *string `json:"seller_sku"`
	Condition   string  `json:"condition"`
	Warranty    string  `json:"warranty"`
	Thumbnail   string  `json:"thumbnail"`
}

type Payment struct {
	ID                int64           `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	TotalPaidAmount   decimal.Decimal `json:"total_paid_amount"`
	ShippingCost      decimal.Decimal `json:"shipping_cost"`
	MarketplaceFee    decimal.Decimal `json:"marketplace_fee"`
	CurrencyID        string          `json:"currency_id"`
	DateApproved      *time.Time      `json:"date_approved"`
	DateCreated       *time.Time      `json:"date_created"`
}

// OrderShipping is the shipping stub embedded in the order; older payloads carry the logistic type here.
type OrderShipping struct {
	ID           *int64 `json:"id"`
	LogisticType string `json:"logistic_type"`
}

// Shipment is the subset of /shipments/{id} the classifier reads.
type Shipment struct {
	ID              int64           `json:"id"`
	Status          string          `json:"status"`
	LogisticType    string          `json:"logistic_type"`
	Logistic        *Logistic       `json:"logistic"`
	ReceiverAddress ReceiverAddress `json:"receiver_address"`
	ShippingOption  ShippingOption  `json:"shipping_option"`
}

// Logistic is present on newer shipment payloads in place of the flat logistic_type.
type Logistic struct {
	Type string `json:"type"`
	Mode string `json:"mode"`
}

// RawLogisticType returns whichever logistic field the payload carries.
func (s *Shipment) RawLogisticType() string {
	if s == nil {
		return ""
	}
	if s.LogisticType != "" {
		return s.LogisticType
	}
	if s.Logistic != nil {
		return s.Logistic.Type
	}
	return ""
}

type ReceiverAddress struct {
	AddressLine   string `json:"address_line"`
	ReceiverName  string `json:"receiver_name"`
	ReceiverPhone string `json:"receiver_phone"`
	City          Named  `json:"city"`
	State         Named  `json:"state"`
}

type Named struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ShippingOption struct {
	Cost     decimal.Decimal `json:"cost"`
	ListCost decimal.Decimal `json:"list_cost"`
}

// ShipmentCosts is /shipments/{id}/costs: what the buyer paid and what each sender is charged.
type ShipmentCosts struct {
	GrossAmount decimal.Decimal `json:"gross_amount"`
	Receiver    CostParty       `json:"receiver"`
	Senders     []CostParty     `json:"senders"`
}

type CostParty struct {
	UserID    int64           `json:"user_id"`
	Cost      decimal.Decimal `json:"cost"`
	Save      decimal.Decimal `json:"save"`
	Discounts []Discount      `json:"discounts"`
}

type Discount struct {
	Type           string          `json:"type"`
	Rate           decimal.Decimal `json:"rate"`
	PromotedAmount decimal.Decimal `json:"promoted_amount"`
}

// BillingInfo is kept raw; fee extraction probes several known shapes.
type BillingInfo json.RawMessage
