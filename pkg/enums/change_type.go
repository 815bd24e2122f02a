package enums

import "fmt"

// ChangeType tags why a product field changed.
type ChangeType string

const (
	ChangeTypeManual     ChangeType = "manual"
	ChangeTypeOrder      ChangeType = "order"
	ChangeTypeAdjustment ChangeType = "adjustment"
	ChangeTypeImport     ChangeType = "import"
)

var validChangeTypes = []ChangeType{
	ChangeTypeManual,
	ChangeTypeOrder,
	ChangeTypeAdjustment,
	ChangeTypeImport,
}

// String implements fmt.Stringer.
func (v ChangeType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known ChangeType.
func (v ChangeType) IsValid() bool {
	for _, candidate := range validChangeTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseChangeType converts raw input into a ChangeType.
func ParseChangeType(value string) (ChangeType, error) {
	for _, candidate := range validChangeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid change type %q", value)
}
