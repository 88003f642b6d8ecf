package middleware

import (
	"net/http"
	"testing"
)

func TestRedactor_Scrub(t *testing.T) {
	red := newRedactor(RedactOptions{})
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"category=math", "category=math"},
		{"a@b.com", "[REDACTED:email]"},
		{"123e4567-e89b-12d3-a456-426614174000", "[REDACTED:id]"},
		{"call 555-123-4567", "call [REDACTED:phone]"},
	}
	for _, tc := range tests {
		if got := red.scrub(tc.in); got != tc.want {
			t.Fatalf("scrub(%q) = %q want %q", tc.in, got, tc.want)
		}
	}
}

func TestRedactor_Headers(t *testing.T) {
	red := newRedactor(RedactOptions{MaskHeaders: []string{"  X-Secret ", ""}})
	h := http.Header{}
	h.Set("Cookie", "sid=1")
	h.Set("X-Secret", "v")
	h.Set("Idempotency-Key", "k")
	h.Set("Accept", "application/json")
	h.Add("X-Multi", "a")
	h.Add("X-Multi", "b")

	got := red.headers(h)
	for _, k := range []string{"Cookie", "X-Secret", "Idempotency-Key"} {
		if got[k] != "[REDACTED]" {
			t.Fatalf("%s = %q", k, got[k])
		}
	}
	if got["Accept"] != "application/json" || got["X-Multi"] != "a, b" {
		t.Fatalf("unexpected headers: %v", got)
	}
}
