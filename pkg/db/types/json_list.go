package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONList stores a slice as a JSON array column (jsonb on Postgres, text on SQLite).
type JSONList[T any] []T

func (l *JSONList[T]) Scan(src any) error {
	if src == nil {
		*l = JSONList[T]{}
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("JSONList: unsupported Scan type %T", src)
	}
	if len(raw) == 0 {
		*l = JSONList[T]{}
		return nil
	}

	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("JSONList: decode: %w", err)
	}
	*l = out
	return nil
}

func (l JSONList[T]) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	encoded, err := json.Marshal([]T(l))
	if err != nil {
		return nil, fmt.Errorf("JSONList: encode: %w", err)
	}
	return string(encoded), nil
}
