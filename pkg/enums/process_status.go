package enums

import "fmt"

// ProcessStatus summarizes a notification-driven deduction run for one order.
type ProcessStatus string

const (
	ProcessStatusProcessed        ProcessStatus = "processed"
	ProcessStatusAlreadyProcessed ProcessStatus = "already_processed"
	ProcessStatusPartial          ProcessStatus = "partial"
	ProcessStatusSkipped          ProcessStatus = "skipped"
	ProcessStatusCancelled        ProcessStatus = "cancelled"
)

var validProcessStatuses = []ProcessStatus{
	ProcessStatusProcessed,
	ProcessStatusAlreadyProcessed,
	ProcessStatusPartial,
	ProcessStatusSkipped,
	ProcessStatusCancelled,
}

// String implements fmt.Stringer.
func (v ProcessStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known ProcessStatus.
func (v ProcessStatus) IsValid() bool {
	for _, candidate := range validProcessStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseProcessStatus converts raw input into a ProcessStatus.
func ParseProcessStatus(value string) (ProcessStatus, error) {
	for _, candidate := range validProcessStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid process status %q", value)
}
