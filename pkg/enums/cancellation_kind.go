package enums

import "fmt"

// CancellationKind classifies why an order is excluded from financial sums.
type CancellationKind string

const (
	CancellationKindNone        CancellationKind = "none"
	CancellationKindInMediation CancellationKind = "in_mediation"
	CancellationKindRefunded    CancellationKind = "refunded"
	CancellationKindCancelled   CancellationKind = "cancelled"
)

var validCancellationKinds = []CancellationKind{
	CancellationKindNone,
	CancellationKindInMediation,
	CancellationKindRefunded,
	CancellationKindCancelled,
}

// String implements fmt.Stringer.
func (v CancellationKind) String() string {
	return string(v)
}

// IsValid reports whether the value is a known CancellationKind.
func (v CancellationKind) IsValid() bool {
	for _, candidate := range validCancellationKinds {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseCancellationKind converts raw input into a CancellationKind.
func ParseCancellationKind(value string) (CancellationKind, error) {
	for _, candidate := range validCancellationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cancellation kind %q", value)
}
