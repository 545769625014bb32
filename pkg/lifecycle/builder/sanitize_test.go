package builder

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// TestSanitizeFileName_Cases pins the exact output of the sanitization
// algorithm; archive layouts depend on it being reproducible.
func TestSanitizeFileName_Cases(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"spaces become underscores", "My Story", "My_Story"},
		{"unsafe characters stripped", `Story<>:"/\|?*`, "Story"},
		{"whitespace runs collapse", "Story   with   spaces", "Story_with_spaces"},
		{"underscores trimmed", "___Story___", "Story"},
		{"empty becomes unnamed", "", "unnamed"},
		{"tabs and newlines", "a\tb\nc", "a_b_c"},
		{"only unsafe characters", `<>:"/\|?*`, "unnamed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeFileName(tc.input); got != tc.want {
				t.Errorf("SanitizeFileName(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSanitizeFileName_Truncation(t *testing.T) {
	long := strings.Repeat("A", 150)
	got := SanitizeFileName(long)
	if len(got) != MaxNameLength {
		t.Errorf("Expected length %d, got %d", MaxNameLength, len(got))
	}
	if got != strings.Repeat("A", MaxNameLength) {
		t.Error("Expected truncation to preserve the leading characters")
	}
}

func TestSanitizeFileName_TruncationKeepsValidUTF8(t *testing.T) {
	// "é" is 2 bytes; 99 ASCII bytes put the cut point mid-rune.
	long := strings.Repeat("A", 99) + strings.Repeat("é", 10)
	got := SanitizeFileName(long)
	if !utf8.ValidString(got) {
		t.Errorf("Expected valid UTF-8, got %q", got)
	}
	if len(got) > MaxNameLength {
		t.Errorf("Expected at most %d bytes, got %d", MaxNameLength, len(got))
	}
	if got != strings.Repeat("A", 99) {
		t.Errorf("Expected the split rune dropped whole, got %q", got)
	}
}
