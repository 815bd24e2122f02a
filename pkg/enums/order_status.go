package enums

import "fmt"

// OrderStatus mirrors the marketplace order lifecycle.
type OrderStatus string

const (
	OrderStatusConfirmed         OrderStatus = "confirmed"
	OrderStatusPaymentRequired   OrderStatus = "payment_required"
	OrderStatusPaymentInProcess  OrderStatus = "payment_in_process"
	OrderStatusPartiallyPaid     OrderStatus = "partially_paid"
	OrderStatusPaid              OrderStatus = "paid"
	OrderStatusPartiallyRefunded OrderStatus = "partially_refunded"
	OrderStatusPendingCancel     OrderStatus = "pending_cancel"
	OrderStatusCancelled         OrderStatus = "cancelled"
	OrderStatusInvalid           OrderStatus = "invalid"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusConfirmed,
	OrderStatusPaymentRequired,
	OrderStatusPaymentInProcess,
	OrderStatusPartiallyPaid,
	OrderStatusPaid,
	OrderStatusPartiallyRefunded,
	OrderStatusPendingCancel,
	OrderStatusCancelled,
	OrderStatusInvalid,
}

// String implements fmt.Stringer.
func (v OrderStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known OrderStatus.
func (v OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into a OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
