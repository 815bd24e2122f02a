package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"trims", "  SKU-1 \n", 10, "SKU-1"},
		{"drops control characters", "aju\x00ste\tmanual", 0, "ajustemanual"},
		{"caps by runes", "Cañón rojo", 4, "Cañó"},
		{"no limit", "bodega", 0, "bodega"},
		{"empty", "   ", 5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeString(tt.in, tt.max))
		})
	}
}
