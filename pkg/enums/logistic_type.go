package enums

import (
	"fmt"
	"strings"
)

// LogisticType is the post-hoc logistics class of an order.
type LogisticType string

const (
	LogisticTypeFulfillment     LogisticType = "fulfillment"
	LogisticTypeSelfService     LogisticType = "self_service"
	LogisticTypeSelfServiceCost LogisticType = "self_service_cost"
	LogisticTypeDropOff         LogisticType = "drop_off"
	LogisticTypeUnknown         LogisticType = "unknown"
)

var validLogisticTypes = []LogisticType{
	LogisticTypeFulfillment,
	LogisticTypeSelfService,
	LogisticTypeSelfServiceCost,
	LogisticTypeDropOff,
	LogisticTypeUnknown,
}

// String implements fmt.Stringer.
func (v LogisticType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known LogisticType.
func (v LogisticType) IsValid() bool {
	for _, candidate := range validLogisticTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// IsFlex reports whether the order ships with the seller's own courier.
func (v LogisticType) IsFlex() bool {
	return v == LogisticTypeSelfService || v == LogisticTypeSelfServiceCost
}

// LogisticTypes returns every class in reporting order.
func LogisticTypes() []LogisticType {
	out := make([]LogisticType, len(validLogisticTypes))
	copy(out, validLogisticTypes)
	return out
}

// ParseLogisticType converts raw input into a LogisticType.
func ParseLogisticType(value string) (LogisticType, error) {
	for _, candidate := range validLogisticTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid logistic type %q", value)
}

// NormalizeLogisticType maps the marketplace's raw logistic_type onto a class.
func NormalizeLogisticType(raw string) LogisticType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "fulfillment":
		return LogisticTypeFulfillment
	case "self_service":
		return LogisticTypeSelfService
	case "self_service_cost":
		return LogisticTypeSelfServiceCost
	case "cross_docking", "drop_off", "xd_drop_off":
		return LogisticTypeDropOff
	default:
		return LogisticTypeUnknown
	}
}
