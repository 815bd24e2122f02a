package env

import "testing"

func TestGetFallsBackWhenBlank(t *testing.T) {
	t.Setenv("MARKETSYNC_TEST_VALUE", "  ")
	if got := Get("MARKETSYNC_TEST_VALUE", "json"); got != "json" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("MARKETSYNC_TEST_VALUE", "console")
	if got := Get("MARKETSYNC_TEST_VALUE", "json"); got != "console" {
		t.Fatalf("expected console, got %q", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("MARKETSYNC_TEST_FLAG", "nope")
	if !Bool("MARKETSYNC_TEST_FLAG", true) {
		t.Fatalf("malformed value should use fallback")
	}
	t.Setenv("MARKETSYNC_TEST_FLAG", "true")
	if !Bool("MARKETSYNC_TEST_FLAG", false) {
		t.Fatalf("expected true")
	}
}
