package enums

import "fmt"

// PendingSaleStatus tracks operator handling of an unmapped sale.
type PendingSaleStatus string

const (
	PendingSaleStatusPending PendingSaleStatus = "pending"
	PendingSaleStatusMapped  PendingSaleStatus = "mapped"
	PendingSaleStatusIgnored PendingSaleStatus = "ignored"
)

var validPendingSaleStatuses = []PendingSaleStatus{
	PendingSaleStatusPending,
	PendingSaleStatusMapped,
	PendingSaleStatusIgnored,
}

// String implements fmt.Stringer.
func (v PendingSaleStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PendingSaleStatus.
func (v PendingSaleStatus) IsValid() bool {
	for _, candidate := range validPendingSaleStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePendingSaleStatus converts raw input into a PendingSaleStatus.
func ParsePendingSaleStatus(value string) (PendingSaleStatus, error) {
	for _, candidate := range validPendingSaleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pending sale status %q", value)
}
