package enums

import (
	"fmt"
	"strconv"
	"strings"
)

// Platform identifies a marketplace by its persisted numeric id.
type Platform int

const (
	PlatformMercadoLibre Platform = 1
	PlatformFalabella    Platform = 2
)

var platformNames = map[Platform]string{
	PlatformMercadoLibre: "mercadolibre",
	PlatformFalabella:    "falabella",
}

// String implements fmt.Stringer.
func (p Platform) String() string {
	if name, ok := platformNames[p]; ok {
		return name
	}
	return strconv.Itoa(int(p))
}

// IsValid reports whether the value is a known Platform.
func (p Platform) IsValid() bool {
	_, ok := platformNames[p]
	return ok
}

// ParsePlatform accepts either the platform name or its numeric id.
func ParsePlatform(value string) (Platform, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	for platform, name := range platformNames {
		if name == trimmed {
			return platform, nil
		}
	}
	if id, err := strconv.Atoi(trimmed); err == nil && Platform(id).IsValid() {
		return Platform(id), nil
	}
	return 0, fmt.Errorf("invalid platform %q", value)
}
