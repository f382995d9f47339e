package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// palette is the set of colours a theme assigns. Empty entries leave the
// terminal default.
type palette struct {
	fg, bg               string
	matched, matchedBg   string
	current, currentBg   string
	currentMatch         string
	query, prompt        string
	cursor, selected     string
	info, border, header string
	errorFg              string
}

var basePalettes = map[string]palette{
	"dark": {
		fg: "252", matched: "108", current: "254", currentBg: "236",
		currentMatch: "151", query: "252", prompt: "110", cursor: "161",
		selected: "168", info: "144", border: "59", header: "109", errorFg: "196",
	},
	"light": {
		fg: "241", matched: "0", matchedBg: "220", current: "236", currentBg: "251",
		currentMatch: "66", query: "241", prompt: "25", cursor: "161",
		selected: "168", info: "101", border: "145", header: "31", errorFg: "160",
	},
	"16": {
		fg: "7", matched: "2", current: "15", currentBg: "0",
		currentMatch: "10", query: "7", prompt: "4", cursor: "1",
		selected: "5", info: "3", border: "8", header: "6", errorFg: "1",
	},
	"bw": {},
}

// Theme holds the styles the chooser renders with.
type Theme struct {
	Normal       lipgloss.Style
	Matched      lipgloss.Style
	Current      lipgloss.Style
	CurrentMatch lipgloss.Style
	Query        lipgloss.Style
	Prompt       lipgloss.Style
	Cursor       lipgloss.Style
	Selected     lipgloss.Style
	Info         lipgloss.Style
	Border       lipgloss.Style
	Header       lipgloss.Style
	Error        lipgloss.Style
}

// ParseTheme parses a colour spec: an optional base scheme (dark, light,
// 16, bw or none) followed by comma-separated name:colour overrides, e.g.
// "light,matched:#ff0000,current_bg:236". Colours are 0-255 or #rrggbb;
// "-1" resets to the terminal default.
func ParseTheme(spec string) (Theme, error) {
	p := basePalettes["dark"]
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			base := part
			if base == "none" {
				base = "bw"
			}
			bp, known := basePalettes[base]
			if !known {
				return Theme{}, fmt.Errorf("color: unknown scheme %q", part)
			}
			p = bp
			continue
		}
		if err := validColor(value); err != nil {
			return Theme{}, fmt.Errorf("color: %s: %w", name, err)
		}
		if value == "-1" {
			value = ""
		}
		target := p.field(name)
		if target == nil {
			return Theme{}, fmt.Errorf("color: unknown element %q", name)
		}
		*target = value
	}
	return p.theme(), nil
}

func (p *palette) field(name string) *string {
	switch name {
	case "fg":
		return &p.fg
	case "bg":
		return &p.bg
	case "matched", "hl":
		return &p.matched
	case "matched_bg":
		return &p.matchedBg
	case "current", "fg+":
		return &p.current
	case "current_bg", "bg+":
		return &p.currentBg
	case "current_match", "hl+":
		return &p.currentMatch
	case "query":
		return &p.query
	case "prompt":
		return &p.prompt
	case "cursor", "pointer":
		return &p.cursor
	case "selected", "marker":
		return &p.selected
	case "info", "spinner":
		return &p.info
	case "border":
		return &p.border
	case "header":
		return &p.header
	case "error":
		return &p.errorFg
	default:
		return nil
	}
}

func validColor(v string) error {
	if v == "-1" {
		return nil
	}
	if strings.HasPrefix(v, "#") {
		if len(v) != 7 {
			return fmt.Errorf("invalid colour %q", v)
		}
		if _, err := strconv.ParseUint(v[1:], 16, 32); err != nil {
			return fmt.Errorf("invalid colour %q", v)
		}
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 255 {
		return fmt.Errorf("invalid colour %q", v)
	}
	return nil
}

func style(fg, bg string) lipgloss.Style {
	s := lipgloss.NewStyle()
	if fg != "" {
		s = s.Foreground(lipgloss.Color(fg))
	}
	if bg != "" {
		s = s.Background(lipgloss.Color(bg))
	}
	return s
}

func (p palette) theme() Theme {
	return Theme{
		Normal:       style(p.fg, p.bg),
		Matched:      style(p.matched, p.matchedBg).Bold(true),
		Current:      style(p.current, p.currentBg).Bold(true),
		CurrentMatch: style(p.currentMatch, p.currentBg).Bold(true),
		Query:        style(p.query, ""),
		Prompt:       style(p.prompt, ""),
		Cursor:       style(p.cursor, p.currentBg).Bold(true),
		Selected:     style(p.selected, ""),
		Info:         style(p.info, ""),
		Border:       style(p.border, ""),
		Header:       style(p.header, ""),
		Error:        style(p.errorFg, ""),
	}
}
