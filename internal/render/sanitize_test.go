package render

import (
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
)

func TestStripANSI(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "hello world", "hello world"},
		{"bold", "\x1b[1mhello\x1b[0m", "hello"},
		{"color", "\x1b[31mred\x1b[0m", "red"},
		{"mixed", "before\x1b[32mgreen\x1b[0mafter", "beforegreenafter"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripANSI(tt.input))
		})
	}
}

func TestValidateUTF8(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid ASCII", "hello", "hello"},
		{"invalid byte", "hello\x80world", "hello�world"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateUTF8(tt.input))
		})
	}
}

func TestSingleLine(t *testing.T) {
	assert.Equal(t, "a b", SingleLine("a\nb"))
	assert.Equal(t, "ab", SingleLine("a\rb"))
	assert.Equal(t, "a\tb", SingleLine("a\tb"))
	assert.Equal(t, "plain", SingleLine("plain"))
}

func TestExpandTabs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		tabstop int
		want    string
	}{
		{"no tabs", "abc", 8, "abc"},
		{"leading tab", "\tx", 4, "    x"},
		{"aligned", "ab\tx", 4, "ab  x"},
		{"disabled", "a\tb", 0, "a\tb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandTabs(tt.input, tt.tabstop))
		})
	}
}

func TestDisplaySafe(t *testing.T) {
	assert.Equal(t, "red line two", DisplaySafe("\x1b[31mred\x1b[0m line\ntwo", 8))
}

func TestMiddleTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		want     string
	}{
		{"fits", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"truncated", "abcdefghij", 7, "abc…hij"},
		{"tiny", "abcdef", 2, "ab"},
		{"zero", "abc", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MiddleTruncate(tt.input, tt.maxWidth)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, runewidth.StringWidth(got), max(tt.maxWidth, 0))
		})
	}
}

func TestMiddleTruncate_CJK(t *testing.T) {
	got := MiddleTruncate("日本語のテキスト", 7)
	assert.LessOrEqual(t, runewidth.StringWidth(got), 7)
	assert.Contains(t, got, "…")
}

func TestWindow(t *testing.T) {
	t.Run("fits", func(t *testing.T) {
		got, start := Window("short", 3, 10)
		assert.Equal(t, "short", got)
		assert.Equal(t, 0, start)
	})

	t.Run("focus near start", func(t *testing.T) {
		got, start := Window("abcdefghijklmnop", 2, 6)
		assert.Equal(t, "abcde…", got)
		assert.Equal(t, 0, start)
	})

	t.Run("focus near end", func(t *testing.T) {
		got, start := Window("abcdefghijklmnop", 15, 6)
		assert.Equal(t, "…lmnop", got)
		assert.Equal(t, 11, start)
	})

	t.Run("focus in middle", func(t *testing.T) {
		got, start := Window("abcdefghijklmnop", 9, 6)
		assert.Equal(t, 6, runewidth.StringWidth(got))
		assert.Contains(t, got, "j")
		assert.Greater(t, start, 0)
	})
}
