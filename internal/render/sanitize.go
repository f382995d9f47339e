package render

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// StripANSI removes ANSI escape sequences from a string.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// ValidateUTF8 replaces invalid UTF-8 byte sequences with the Unicode
// replacement character (U+FFFD).
func ValidateUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, string(utf8.RuneError))
}

// SingleLine folds line breaks into spaces and drops the remaining C0 control
// characters except tab, so the result occupies exactly one terminal row.
func SingleLine(s string) string {
	if !strings.ContainsFunc(s, isControl) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteRune(' ')
		case isControl(r):
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isControl(r rune) bool {
	return (r < 0x20 && r != '\t') || r == 0x7f
}

// ExpandTabs replaces tab characters with spaces up to the next multiple of
// tabstop display columns. A tabstop below 1 leaves s unchanged.
func ExpandTabs(s string, tabstop int) string {
	if tabstop < 1 || !strings.ContainsRune(s, '\t') {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			n := tabstop - col%tabstop
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col += runewidth.RuneWidth(r)
	}
	return b.String()
}

// DisplaySafe is the normalization applied to every item's display text:
// valid UTF-8, no escape sequences, one row, tabs expanded.
func DisplaySafe(s string, tabstop int) string {
	return ExpandTabs(SingleLine(StripANSI(ValidateUTF8(s))), tabstop)
}

// MiddleTruncate truncates a string in the middle with an ellipsis character
// if its display width exceeds maxWidth. It is display-width-aware, correctly
// handling CJK characters and emoji that occupy two columns.
//
// If maxWidth < 3, the string is simply truncated from the right.
func MiddleTruncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth < 3 {
		return TruncateRight(s, maxWidth)
	}

	remaining := maxWidth - 1
	head := TruncateRight(s, (remaining+1)/2)
	tail := keepRight(s, remaining/2)
	return head + ellipsis + tail
}

const ellipsis = "…"

// TruncateRight returns the longest prefix of s whose display width does not
// exceed maxWidth.
func TruncateRight(s string, maxWidth int) string {
	w := 0
	for i, r := range s {
		rw := runewidth.RuneWidth(r)
		if w+rw > maxWidth {
			return s[:i]
		}
		w += rw
	}
	return s
}

// keepRight returns the longest suffix of s whose display width does not
// exceed maxWidth.
func keepRight(s string, maxWidth int) string {
	runes := []rune(s)
	w := 0
	start := len(runes)
	for i := len(runes) - 1; i >= 0; i-- {
		rw := runewidth.RuneWidth(runes[i])
		if w+rw > maxWidth {
			break
		}
		w += rw
		start = i
	}
	return string(runes[start:])
}

// Window returns the part of s that fits in maxWidth columns while keeping
// the rune at index focus visible. A leading ellipsis marks a cut prefix and a
// trailing one marks a cut suffix. The returned offset is the rune index of
// the first rune of s that is still visible.
func Window(s string, focus, maxWidth int) (string, int) {
	if maxWidth <= 0 {
		return "", 0
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s, 0
	}
	runes := []rune(s)
	if focus < 0 || focus >= len(runes) || runewidth.StringWidth(string(runes[:focus+1])) < maxWidth {
		return TruncateRight(s, maxWidth-1) + ellipsis, 0
	}

	// Walk left from focus until the window is full, reserving a column for
	// the leading ellipsis and, if the suffix is cut, one for the trailing one.
	budget := maxWidth - 1
	if runewidth.StringWidth(string(runes[focus:])) > budget {
		budget--
	}
	start := focus
	w := runewidth.RuneWidth(runes[focus])
	for start > 0 {
		rw := runewidth.RuneWidth(runes[start-1])
		if w+rw > budget {
			break
		}
		w += rw
		start--
	}
	rest := string(runes[start:])
	visible := TruncateRight(rest, maxWidth-1)
	if visible != rest {
		visible = TruncateRight(rest, maxWidth-2) + ellipsis
	}
	return ellipsis + visible, start
}
