package services

import (
	"testing"
	"time"
)

func TestValidateTargetURL(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		valid bool
	}{
		{"https domain", "https://example.com", true},
		{"http domain with path", "http://example.com/some/path?q=1", true},
		{"ftp", "ftp://files.example.com/pub", true},
		{"ftps", "ftps://files.example.com", true},
		{"localhost with port", "http://localhost:8080/x", true},
		{"ipv4", "http://192.168.0.10/admin", true},
		{"subdomains", "https://a.b.example.co.uk", true},
		{"no scheme", "example.com", false},
		{"unsupported scheme", "javascript:alert(1)", false},
		{"missing host", "https://", false},
		{"spaces in path", "https://example.com/a b", false},
		{"plain text", "not-a-url", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTargetURL(tt.url)
			if tt.valid && err != nil {
				t.Errorf("expected '%s' to be valid, got %v", tt.url, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("expected '%s' to be invalid", tt.url)
			}
		})
	}
}

func TestParseExpiry(t *testing.T) {
	t.Run("empty means never", func(t *testing.T) {
		got, err := ParseExpiry("")
		if err != nil || got != nil {
			t.Fatalf("empty expiry should parse to nil, got %v / %v", got, err)
		}
	})

	t.Run("valid date", func(t *testing.T) {
		got, err := ParseExpiry("12.06.2025 04:20")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2025, time.June, 12, 4, 20, 0, 0, time.Local)
		if !got.Equal(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	})

	invalid := []string{
		"2025-06-12 04:20",
		"12.06.2025",
		"31.02.2025 10:00",
		"12.06.25 04:20",
		"garbage",
	}
	for _, raw := range invalid {
		t.Run("invalid "+raw, func(t *testing.T) {
			if _, err := ParseExpiry(raw); err == nil {
				t.Errorf("expected '%s' to be rejected", raw)
			}
		})
	}
}
