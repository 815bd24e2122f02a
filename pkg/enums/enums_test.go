package enums

import "testing"

func TestParsePlatform(t *testing.T) {
	tests := []struct {
		in   string
		want Platform
		ok   bool
	}{
		{in: "mercadolibre", want: PlatformMercadoLibre, ok: true},
		{in: " Falabella ", want: PlatformFalabella, ok: true},
		{in: "1", want: PlatformMercadoLibre, ok: true},
		{in: "7", ok: false},
		{in: "amazon", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePlatform(tt.in)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatalf("expected error for %q", tt.in)
			}
			if got != tt.want {
				t.Fatalf("expected %v got %v", tt.want, got)
			}
		})
	}
}

func TestNormalizeLogisticType(t *testing.T) {
	cases := map[string]LogisticType{
		"fulfillment":   LogisticTypeFulfillment,
		"self_service":  LogisticTypeSelfService,
		"cross_docking": LogisticTypeDropOff,
		"xd_drop_off":   LogisticTypeDropOff,
		"drop_off":      LogisticTypeDropOff,
		"":              LogisticTypeUnknown,
		"custom":        LogisticTypeUnknown,
	}
	for raw, want := range cases {
		if got := NormalizeLogisticType(raw); got != want {
			t.Fatalf("NormalizeLogisticType(%q) = %v, want %v", raw, got, want)
		}
	}
	if !LogisticTypeSelfServiceCost.IsFlex() || LogisticTypeDropOff.IsFlex() {
		t.Fatalf("unexpected IsFlex result")
	}
}

func TestParseAuditStatus(t *testing.T) {
	if got, err := ParseAuditStatus("OK_INTERNO"); err != nil || got != AuditStatusOKInterno {
		t.Fatalf("unexpected parse result %v %v", got, err)
	}
	if _, err := ParseAuditStatus("ok_interno"); err == nil {
		t.Fatalf("audit status parsing is case sensitive")
	}
}
