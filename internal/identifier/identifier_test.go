package identifier

import (
	"strings"
	"testing"
)

func TestGenerateShape(t *testing.T) {
	id := Generate()

	if !strings.HasPrefix(id, Prefix) {
		t.Fatalf("expected %q prefix, got %q", Prefix, id)
	}
	if len(id) < 10 {
		t.Fatalf("identifier too short: %q", id)
	}
	if id != strings.ToUpper(id) {
		t.Fatalf("identifier not upper-cased: %q", id)
	}
}

func TestGenerateUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := Generate()
		if seen[id] {
			t.Fatalf("duplicate identifier after %d generations: %q", i, id)
		}
		seen[id] = true
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for i := 0; i < 50; i++ {
		id := Generate()
		display := Format(id)

		parts := strings.Split(display, "-")
		if len(parts) != 4 {
			t.Fatalf("expected 4 segments for %q, got %v", id, parts)
		}
		if len(parts[0]) != 2 || len(parts[1]) != 4 || len(parts[2]) != 4 {
			t.Fatalf("unexpected segment widths in %q", display)
		}
		if Compact(display) != id {
			t.Fatalf("round trip mismatch: %q -> %q", id, display)
		}
	}
}

func TestFormatShortInput(t *testing.T) {
	cases := map[string]string{
		"":            "",
		"M":           "M",
		"MP":          "MP",
		"MP123":       "MP-123",
		"MP1234":      "MP-1234",
		"MP12345678":  "MP-1234-5678",
		"MP123456789": "MP-1234-5678-9",
	}
	for in, want := range cases {
		if got := Format(in); got != want {
			t.Fatalf("Format(%q) = %q, want %q", in, got, want)
		}
	}
}
