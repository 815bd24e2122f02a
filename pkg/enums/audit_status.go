package enums

import "fmt"

// AuditStatus is the outcome of one inventory deduction attempt.
type AuditStatus string

const (
	AuditStatusOKInterno AuditStatus = "OK_INTERNO"
	AuditStatusOKFull    AuditStatus = "OK_FULL"
	AuditStatusNotFound  AuditStatus = "NOT_FOUND"
	AuditStatusCancelled AuditStatus = "CANCELLED"
)

var validAuditStatuses = []AuditStatus{
	AuditStatusOKInterno,
	AuditStatusOKFull,
	AuditStatusNotFound,
	AuditStatusCancelled,
}

// String implements fmt.Stringer.
func (v AuditStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known AuditStatus.
func (v AuditStatus) IsValid() bool {
	for _, candidate := range validAuditStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseAuditStatus converts raw input into a AuditStatus.
func ParseAuditStatus(value string) (AuditStatus, error) {
	for _, candidate := range validAuditStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit status %q", value)
}
