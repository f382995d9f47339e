package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/runger/sk/internal/render"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
)

// frame is the area left for the chooser once height and margins apply.
type frame struct {
	top, right, bottom, left int
	width, height            int
}

func (m Model) frame() frame {
	width, height := m.width, m.height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	h := height
	if !m.opts.fullscreen() {
		h = max(m.opts.Height.Of(height), m.opts.MinHeight)
		h = min(h, height)
	}
	mg := m.opts.Margin
	f := frame{
		top:    mg.Top.Of(h),
		right:  mg.Right.Of(width),
		bottom: mg.Bottom.Of(h),
		left:   mg.Left.Of(width),
	}
	f.width = max(width-f.left-f.right, 1)
	f.height = max(h-f.top-f.bottom, 1)
	return f
}

func (m Model) previewVisible() bool {
	return m.opts.Preview && !m.previewHidden
}

// previewOuter is the preview pane size including its border.
func (m Model) previewOuter() (int, int) {
	if !m.previewVisible() {
		return 0, 0
	}
	f := m.frame()
	pw := m.opts.PreviewWindow
	switch pw.Position {
	case PositionUp, PositionDown:
		return f.width, min(max(pw.Size.Of(f.height), 3), f.height-2)
	default:
		return min(max(pw.Size.Of(f.width), 3), f.width-4), f.height
	}
}

// previewSize is the preview content area.
func (m Model) previewSize() (int, int) {
	w, h := m.previewOuter()
	return max(w-2, 0), max(h-2, 0)
}

// listSize is the area of the prompt, info line and item rows.
func (m Model) listSize() (int, int) {
	f := m.frame()
	pw, ph := m.previewOuter()
	switch m.opts.PreviewWindow.Position {
	case PositionUp, PositionDown:
		return f.width, max(f.height-ph, 2)
	default:
		return max(f.width-pw, 4), f.height
	}
}

// listHeight is the number of rows available for matches.
func (m Model) listHeight() int {
	_, h := m.listSize()
	h-- // prompt
	if !m.opts.InlineInfo {
		h--
	}
	return max(h, 1)
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting && !m.opts.NoClear {
		return ""
	}

	f := m.frame()
	listW, _ := m.listSize()
	list := lipgloss.NewStyle().Width(listW).Render(render.Clip(m.listView(listW), listW))

	body := list
	if m.previewVisible() {
		preview := m.previewView()
		switch m.opts.PreviewWindow.Position {
		case PositionLeft:
			body = lipgloss.JoinHorizontal(lipgloss.Top, preview, list)
		case PositionUp:
			body = lipgloss.JoinVertical(lipgloss.Left, preview, list)
		case PositionDown:
			body = lipgloss.JoinVertical(lipgloss.Left, list, preview)
		default:
			body = lipgloss.JoinHorizontal(lipgloss.Top, list, preview)
		}
	}
	return lipgloss.NewStyle().
		Margin(f.top, f.right, f.bottom, f.left).
		Render(body)
}

func (m Model) listView(width int) string {
	rows := m.rows(width)
	prompt := m.promptLine(width)

	var lines []string
	switch m.opts.Layout {
	case LayoutReverse:
		lines = append(lines, prompt)
		if !m.opts.InlineInfo {
			lines = append(lines, m.infoLine())
		}
		lines = append(lines, rows...)
	case LayoutReverseList:
		lines = append(lines, rows...)
		if !m.opts.InlineInfo {
			lines = append(lines, m.infoLine())
		}
		lines = append(lines, prompt)
	default:
		for i := len(rows) - 1; i >= 0; i-- {
			lines = append(lines, rows[i])
		}
		if !m.opts.InlineInfo {
			lines = append(lines, m.infoLine())
		}
		lines = append(lines, prompt)
	}
	return strings.Join(lines, "\n")
}

// rows renders the visible matches in ranking order, padded with blank
// rows to the list height.
func (m Model) rows(width int) []string {
	h := m.listHeight()
	out := make([]string, 0, h)
	for i := m.offset; i < len(m.matches) && len(out) < h; i++ {
		out = append(out, m.renderRow(m.matches[i], i == m.cursor, width))
	}
	for len(out) < h {
		out = append(out, "")
	}
	return out
}

func (m Model) promptLine(width int) string {
	in := m.input
	info := ""
	if m.opts.InlineInfo {
		info = "  < " + m.infoText()
	}
	in.Width = max(width-runewidth.StringWidth(in.Prompt)-runewidth.StringWidth(info)-1, 1)
	line := in.View()
	if info != "" {
		line += m.theme.Info.Render(info)
	}
	return line
}

func (m Model) infoLine() string {
	return m.theme.Info.Render("  " + m.infoText())
}

func (m Model) infoText() string {
	s := fmt.Sprintf("%d/%d", len(m.matches), len(m.items))
	if m.opts.Multi && len(m.chosen) > 0 {
		s += fmt.Sprintf(" (%d)", len(m.chosen))
	}
	if !m.done {
		s += " ..."
	}
	if m.matchErr != nil {
		s += " " + m.theme.Error.Render(m.matchErr.Error())
	}
	return s
}

func (m Model) renderRow(mt Match, current bool, width int) string {
	pointer, mark := " ", " "
	if current {
		pointer = m.theme.Cursor.Render(">")
	}
	if m.chosen[mt.Item.Index()] {
		mark = m.theme.Selected.Render(">")
	}
	avail := max(width-2, 1)
	if mt.Item.Err() != nil {
		return pointer + mark + m.theme.Error.Render(render.TruncateRight(mt.Item.Text(), avail))
	}
	return pointer + mark + m.highlight(mt, current, avail)
}

// highlight renders the item text within width columns with its matched
// runes styled. Long lines scroll so the last matched rune stays visible.
func (m Model) highlight(mt Match, current bool, width int) string {
	text := mt.Item.Text()
	focus := -1
	if len(mt.Positions) > 0 {
		focus = mt.Positions[len(mt.Positions)-1]
	}

	visible, start := text, 0
	if m.opts.NoHScroll {
		if runewidth.StringWidth(text) > width {
			visible = render.TruncateRight(text, width-1) + "…"
		}
	} else {
		visible, start = render.Window(text, focus, width)
	}

	base, hi := m.theme.Normal, m.theme.Matched
	if current {
		base, hi = m.theme.Current, m.theme.CurrentMatch
	}
	matched := make(map[int]bool, len(mt.Positions))
	for _, p := range mt.Positions {
		matched[p] = true
	}

	// With a leading ellipsis, visible rune i shows text rune start+i-1.
	textRunes := []rune(text)
	var b strings.Builder
	var run []rune
	runHi := false
	flush := func() {
		if len(run) == 0 {
			return
		}
		st := base
		if runHi {
			st = hi
		}
		b.WriteString(st.Render(string(run)))
		run = run[:0]
	}
	for i, r := range []rune(visible) {
		ti := i
		if start > 0 {
			ti = start + i - 1
		}
		h := matched[ti] && ti >= 0 && ti < len(textRunes) && textRunes[ti] == r
		if h != runHi {
			flush()
			runHi = h
		}
		run = append(run, r)
	}
	flush()

	if current {
		if pad := width - runewidth.StringWidth(visible); pad > 0 {
			b.WriteString(base.Render(strings.Repeat(" ", pad)))
		}
	}
	return b.String()
}

func (m Model) previewView() string {
	w, h := m.previewSize()
	text := m.previewText
	if m.opts.PreviewWindow.Wrap && w > 0 {
		text = lipgloss.NewStyle().Width(w).Render(text)
	}
	lines := strings.Split(text, "\n")
	scroll := min(m.previewScroll, max(len(lines)-1, 0))
	lines = lines[scroll:]
	if len(lines) > h {
		lines = lines[:h]
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Border.GetForeground()).
		Width(w).
		Height(h).
		Render(render.Clip(strings.Join(lines, "\n"), w))
}
