package util

import "testing"

func TestClampLine(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		expected string
	}{
		{"short line unchanged", "head north", 20, "head north"},
		{"exact width unchanged", "hello", 5, "hello"},
		{"long line clamped", "hello world", 8, "hello..."},
		{"tiny width is just ellipsis", "hello", 3, "..."},
		{"zero width is just ellipsis", "hello", 0, "..."},
		{"empty line", "", 10, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampLine(tt.input, tt.maxWidth); got != tt.expected {
				t.Errorf("ClampLine(%q, %d) = %q, want %q", tt.input, tt.maxWidth, got, tt.expected)
			}
		})
	}
}

func TestClampLineWideRunes(t *testing.T) {
	// CJK characters occupy two terminal cells each.
	in := "機場排隊機場排隊機場排隊"
	got := ClampLine(in, 10)
	if got == in {
		t.Fatal("wide line not clamped")
	}
	if w := len([]rune(got)); w == 0 {
		t.Fatal("clamped to nothing")
	}
}
