package falabella

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// OneOrMany decodes Seller Center collections, which collapse to a bare object
// when they hold a single element.
type OneOrMany[T any] []T

func (o *OneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		*o = nil
		return nil
	}
	if data[0] == '[' {
		var many []T
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*o = many
		return nil
	}
	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*o = OneOrMany[T]{one}
	return nil
}

type Order struct {
	OrderID     string   `json:"OrderId"`
	OrderNumber string   `json:"OrderNumber"`
	CreatedAt   string   `json:"CreatedAt"`
	UpdatedAt   string   `json:"UpdatedAt"`
	Price       string   `json:"Price"`
	ItemsCount  string   `json:"ItemsCount"`
	Statuses    Statuses `json:"Statuses"`
}

type Statuses struct {
	Status OneOrMany[string] `json:"Status"`
}

// HasStatus reports whether any of the order's item statuses equals status.
func (o Order) HasStatus(status string) bool {
	for _, s := range o.Statuses.Status {
		if strings.EqualFold(s, status) {
			return true
		}
	}
	return false
}

// OrderItem is one sold unit; Seller Center emits a row per unit rather than a quantity.
type OrderItem struct {
	OrderItemID  string `json:"OrderItemId"`
	OrderID      string `json:"OrderId"`
	Name         string `json:"Name"`
	Sku          string `json:"Sku"`
	ShopSku      string `json:"ShopSku"`
	Status       string `json:"Status"`
	ShippingType string `json:"ShippingType"`
	ItemPrice    string `json:"ItemPrice"`
	PaidPrice    string `json:"PaidPrice"`
}

// FulfilledByPlatform reports whether Falabella ships the unit from its own warehouse.
func (i OrderItem) FulfilledByPlatform() bool {
	return strings.EqualFold(strings.TrimSpace(i.ShippingType), "Own Warehouse")
}

// Cancelled reports whether the unit was cancelled or returned.
func (i OrderItem) Cancelled() bool {
	switch strings.ToLower(strings.TrimSpace(i.Status)) {
	case "canceled", "cancelled", "returned", "failed":
		return true
	}
	return false
}

type successEnvelope[T any] struct {
	SuccessResponse *struct {
		Body T `json:"Body"`
	} `json:"SuccessResponse"`
	ErrorResponse *struct {
		Head struct {
			ErrorCode    string `json:"ErrorCode"`
			ErrorMessage string `json:"ErrorMessage"`
		} `json:"Head"`
	} `json:"ErrorResponse"`
}

type ordersBody struct {
	Orders struct {
		Order OneOrMany[Order] `json:"Order"`
	} `json:"Orders"`
}

type orderItemsBody struct {
	OrderItems struct {
		OrderItem OneOrMany[OrderItem] `json:"OrderItem"`
	} `json:"OrderItems"`
}

// isNotFoundCode matches Seller Center's E016 "Invalid Order ID".
func isNotFoundCode(code string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(code))
	return err == nil && n == 16
}
