package tui

import (
	"testing"
	"time"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		want     string
	}{
		{"fits", "hello", 10, "hello"},
		{"truncated", "hello world", 8, "hello..."},
		{"tiny width", "hello", 2, "he"},
		{"newlines flattened", "a\nb\tc", 10, "a b c"},
		{"arabic double width", "مرحبا", 20, "مرحبا"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateRunes(tt.input, tt.maxWidth); got != tt.want {
				t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.input, tt.maxWidth, got, tt.want)
			}
		})
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 5); got != "ab   " {
		t.Errorf("padRight = %q", got)
	}
	if got := padRight("abcdef", 4); got != "abcd" {
		t.Errorf("padRight overflow = %q", got)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("the quick brown fox jumps over the lazy dog", 15)
	for _, l := range lines {
		if len(l) > 15 {
			t.Errorf("line %q exceeds width", l)
		}
	}
	if len(lines) < 3 {
		t.Errorf("lines = %d, want at least 3", len(lines))
	}

	// Short text passes through untouched
	if lines := wrapText("short", 15); len(lines) != 1 || lines[0] != "short" {
		t.Errorf("wrapText(short) = %v", lines)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "<1s"},
		{42 * time.Second, "42s"},
		{5 * time.Minute, "5m"},
		{90 * time.Minute, "1h30m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
