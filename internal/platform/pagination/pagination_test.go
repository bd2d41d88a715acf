package pagination

import (
	"strings"
	"testing"
)

func TestClampPageSize(t *testing.T) {
	cfg := PageSizeConfig{Default: 25, Max: 100}
	tests := []struct {
		name  string
		value int
		want  int
	}{
		{"zero uses default", 0, 25},
		{"negative uses default", -5, 25},
		{"within bounds", 40, 40},
		{"above max clamps", 500, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampPageSize(tt.value, cfg); got != tt.want {
				t.Fatalf("ClampPageSize(%d) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestClampPageSizeZeroConfig(t *testing.T) {
	if got := ClampPageSize(0, PageSizeConfig{}); got != 1 {
		t.Fatalf("ClampPageSize = %d, want 1", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	c := NewCursor("task-42", "status=active")
	token, err := Encode(c)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.AfterID != "task-42" {
		t.Fatalf("after id = %q, want task-42", decoded.AfterID)
	}
	if err := ValidateFilterHash(decoded, "status=active"); err != nil {
		t.Fatalf("validate filter: %v", err)
	}
	if err := ValidateFilterHash(decoded, "status=archived"); err == nil {
		t.Fatal("expected filter change to invalidate cursor")
	}
}

func TestDecodeRejectsMalformedTokens(t *testing.T) {
	for _, token := range []string{"", "not-base64!!!", "YWJjZGVm"} {
		if _, err := Decode(token); err == nil {
			t.Fatalf("expected error for token %q", token)
		}
	}
}

func TestHashFilterStable(t *testing.T) {
	if HashFilter("") != "" {
		t.Fatal("empty filter should hash to empty string")
	}
	a := HashFilter("status=active")
	b := HashFilter("status=active")
	if a != b {
		t.Fatalf("hash not stable: %q vs %q", a, b)
	}
	if len(a) != 16 || strings.ContainsAny(a, " =") {
		t.Fatalf("unexpected hash format %q", a)
	}
}
