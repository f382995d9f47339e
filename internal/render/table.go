package render

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
)

var (
	tableBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36")).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	tableIndexStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
)

// Table renders a structured preview value. Records become a key/value
// table, lists of records a table with one column per key, other lists an
// indexed single-column table. Strings are returned as they are (they may
// carry the caller's own styling) and other scalars as their Text.
//
// Every output line is clipped to width display columns when width > 0.
func Table(v any, width int) string {
	var out string
	switch val := v.(type) {
	case string:
		out = val
	case map[string]any:
		out = recordTable(val, width)
	case []any:
		out = listTable(val, width)
	default:
		out = Text(v)
	}
	return Clip(out, width)
}

// Clip truncates each line of s to width display columns, keeping ANSI
// styling intact. A width of 0 or less disables clipping.
func Clip(s string, width int) string {
	if width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = ansi.Truncate(line, width, "")
	}
	return strings.Join(lines, "\n")
}

func newTable(width int) *table.Table {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tableBorderStyle)
	if width > 0 {
		t = t.Width(width)
	}
	return t
}

func recordTable(rec map[string]any, width int) string {
	if len(rec) == 0 {
		return "{}"
	}
	t := newTable(width).StyleFunc(func(row, col int) lipgloss.Style {
		if col == 0 {
			return tableHeaderStyle
		}
		return tableCellStyle
	})
	for _, k := range SortedKeys(rec) {
		t.Row(k, cellText(rec[k]))
	}
	return t.String()
}

func listTable(list []any, width int) string {
	if len(list) == 0 {
		return "[]"
	}

	columns, ok := recordColumns(list)
	if !ok {
		t := newTable(width).StyleFunc(indexedStyle)
		for i, v := range list {
			t.Row(strconv.Itoa(i), cellText(v))
		}
		return t.String()
	}

	t := newTable(width).
		Headers(append([]string{"#"}, columns...)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return indexedStyle(row, col)
		})
	for i, v := range list {
		rec := v.(map[string]any)
		cells := make([]string, 0, len(columns)+1)
		cells = append(cells, strconv.Itoa(i))
		for _, c := range columns {
			cells = append(cells, cellText(rec[c]))
		}
		t.Row(cells...)
	}
	return t.String()
}

func indexedStyle(_, col int) lipgloss.Style {
	if col == 0 {
		return tableIndexStyle
	}
	return tableCellStyle
}

// recordColumns returns the union of keys of a list made only of records, in
// order of first appearance (keys within a record are sorted).
func recordColumns(list []any) ([]string, bool) {
	seen := make(map[string]bool)
	var columns []string
	for _, v := range list {
		rec, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		for _, k := range SortedKeys(rec) {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	return columns, true
}

// cellText renders a nested value on one line.
func cellText(v any) string {
	return SingleLine(Text(v))
}
