package sanitizer

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"trims whitespace", "  Marie  ", "Marie"},
		{"collapses runs", "Marie   Claire", "Marie Claire"},
		{"drops control chars", "Mar\x00ie\tDupont", "Marie Dupont"},
		{"empty input", "", ""},
		{"only whitespace", "   \t  ", ""},
		{"unicode preserved", "Zürich  Nord", "Zürich Nord"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.input); got != tt.expected {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Marie.Dupont@Example.COM "); got != "marie.dupont@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}
