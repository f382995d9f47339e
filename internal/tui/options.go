package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layout is the vertical arrangement of the prompt and the list.
type Layout int

const (
	// LayoutDefault puts the prompt at the bottom and lists upwards.
	LayoutDefault Layout = iota
	// LayoutReverse puts the prompt at the top and lists downwards.
	LayoutReverse
	// LayoutReverseList puts the prompt at the bottom and lists downwards.
	LayoutReverseList
)

// ParseLayout parses default, reverse or reverse-list.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "", "default":
		return LayoutDefault, nil
	case "reverse":
		return LayoutReverse, nil
	case "reverse-list":
		return LayoutReverseList, nil
	default:
		return 0, fmt.Errorf("unknown layout %q (want default, reverse or reverse-list)", s)
	}
}

// Algo is the fuzzy scoring algorithm.
type Algo int

const (
	AlgoSkimV2 Algo = iota
	AlgoSkimV1
	AlgoClangd
)

// ParseAlgo parses skim_v1, skim_v2 or clangd.
func ParseAlgo(s string) (Algo, error) {
	switch s {
	case "", "skim_v2":
		return AlgoSkimV2, nil
	case "skim_v1":
		return AlgoSkimV1, nil
	case "clangd":
		return AlgoClangd, nil
	default:
		return 0, fmt.Errorf("unknown algo %q (want skim_v1, skim_v2 or clangd)", s)
	}
}

// CaseMode controls case sensitivity of matching.
type CaseMode int

const (
	// CaseSmart ignores case unless the query has an upper-case letter.
	CaseSmart CaseMode = iota
	CaseIgnore
	CaseRespect
)

// ParseCase parses smart, ignore or respect.
func ParseCase(s string) (CaseMode, error) {
	switch s {
	case "", "smart":
		return CaseSmart, nil
	case "ignore":
		return CaseIgnore, nil
	case "respect":
		return CaseRespect, nil
	default:
		return 0, fmt.Errorf("unknown case mode %q (want smart, ignore or respect)", s)
	}
}

// Criterion is one tiebreak key.
type Criterion struct {
	Key  string // score, begin, end, length or index
	Desc bool   // reverse the natural order
}

// DefaultTiebreak is the ranking order used when none is configured.
var DefaultTiebreak = []Criterion{{Key: "score"}, {Key: "begin"}, {Key: "end"}}

// ParseTiebreak parses a comma-separated list such as "score,-length".
func ParseTiebreak(s string) ([]Criterion, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultTiebreak, nil
	}
	var out []Criterion
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		c := Criterion{Key: strings.TrimPrefix(part, "-"), Desc: strings.HasPrefix(part, "-")}
		switch c.Key {
		case "score", "begin", "end", "length", "index":
		default:
			return nil, fmt.Errorf("unknown tiebreak %q (want score, begin, end, length or index)", part)
		}
		out = append(out, c)
	}
	return out, nil
}

// Size is an absolute row/column count or a percentage of the terminal.
type Size struct {
	Value   int
	Percent bool
}

// Of resolves s against a total.
func (s Size) Of(total int) int {
	if s.Percent {
		return total * s.Value / 100
	}
	return s.Value
}

// ParseSize parses "40%" or "12".
func ParseSize(s string) (Size, error) {
	s = strings.TrimSpace(s)
	pct := strings.HasSuffix(s, "%")
	n, err := strconv.Atoi(strings.TrimSuffix(s, "%"))
	if err != nil || n < 0 {
		return Size{}, fmt.Errorf("invalid size %q", s)
	}
	if pct && n > 100 {
		return Size{}, fmt.Errorf("invalid size %q: percentage above 100", s)
	}
	return Size{Value: n, Percent: pct}, nil
}

// FullHeight is the default height: the whole screen.
var FullHeight = Size{Value: 100, Percent: true}

// Margin is the space kept free around the finder.
type Margin struct {
	Top, Right, Bottom, Left Size
}

// ParseMargin parses one to four comma-separated sizes with the CSS
// shorthand rules: "1", "1,2" (vertical,horizontal), "1,2,3"
// (top,horizontal,bottom) or "1,2,3,4".
func ParseMargin(s string) (Margin, error) {
	if strings.TrimSpace(s) == "" {
		return Margin{}, nil
	}
	parts := strings.Split(s, ",")
	sizes := make([]Size, len(parts))
	for i, p := range parts {
		sz, err := ParseSize(p)
		if err != nil {
			return Margin{}, fmt.Errorf("margin: %w", err)
		}
		sizes[i] = sz
	}
	switch len(sizes) {
	case 1:
		return Margin{sizes[0], sizes[0], sizes[0], sizes[0]}, nil
	case 2:
		return Margin{sizes[0], sizes[1], sizes[0], sizes[1]}, nil
	case 3:
		return Margin{sizes[0], sizes[1], sizes[2], sizes[1]}, nil
	case 4:
		return Margin{sizes[0], sizes[1], sizes[2], sizes[3]}, nil
	default:
		return Margin{}, fmt.Errorf("margin: want 1 to 4 values, got %d", len(sizes))
	}
}

// Position is where the preview pane sits.
type Position int

const (
	PositionRight Position = iota
	PositionLeft
	PositionUp
	PositionDown
)

// PreviewWindow is the preview pane geometry.
type PreviewWindow struct {
	Position Position
	Size     Size
	Hidden   bool
	Wrap     bool
}

// ParsePreviewWindow parses "[position][:size][:hidden][:wrap]", for
// example "right:50%", "up:10" or "down:30%:hidden".
func ParsePreviewWindow(s string) (PreviewWindow, error) {
	pw := PreviewWindow{Position: PositionRight, Size: Size{Value: 50, Percent: true}}
	if strings.TrimSpace(s) == "" {
		return pw, nil
	}
	for _, part := range strings.Split(s, ":") {
		switch part = strings.TrimSpace(part); part {
		case "":
		case "right":
			pw.Position = PositionRight
		case "left":
			pw.Position = PositionLeft
		case "up", "top":
			pw.Position = PositionUp
		case "down", "bottom":
			pw.Position = PositionDown
		case "hidden":
			pw.Hidden = true
		case "wrap":
			pw.Wrap = true
		case "nowrap":
			pw.Wrap = false
		default:
			sz, err := ParseSize(part)
			if err != nil {
				return PreviewWindow{}, fmt.Errorf("preview-window: unknown option %q", part)
			}
			pw.Size = sz
		}
	}
	return pw, nil
}

// Options configure the chooser. They come from flags and the config file
// and are never changed by a running session.
type Options struct {
	Multi  bool
	Prompt string
	// Expect lists extra accept keys in sk key notation (ctrl-x, alt-a).
	Expect []string
	// Bind maps keys in sk notation to action chains.
	Bind map[string][]Action

	Tac      bool
	NoSort   bool
	Tiebreak []Criterion
	Exact    bool
	Regex    bool
	Algo     Algo
	Case     CaseMode

	Color         string
	Margin        Margin
	NoClear       bool
	Height        Size
	MinHeight     int
	PreviewWindow PreviewWindow
	Layout        Layout
	NoHScroll     bool
	NoMouse       bool
	InlineInfo    bool
	Sync          bool

	Exit0   bool
	Select1 bool

	// Preview enables the preview pane.
	Preview bool
	// Interactive disables local filtering: the query only drives requery.
	Interactive bool
	// Debounce delays requery after the last keystroke.
	Debounce time.Duration
	// History holds earlier queries, oldest first.
	History []string
}

// DefaultOptions mirrors the defaults of the sk command line.
func DefaultOptions() Options {
	pw, _ := ParsePreviewWindow("right:50%")
	return Options{
		Prompt:        "> ",
		Tiebreak:      DefaultTiebreak,
		Height:        FullHeight,
		MinHeight:     10,
		PreviewWindow: pw,
		Debounce:      100 * time.Millisecond,
	}
}

// Validate checks option combinations that parsing alone cannot catch.
func (o Options) Validate() error {
	if o.MinHeight < 0 {
		return fmt.Errorf("min-height must be >= 0")
	}
	if o.Exact && o.Regex {
		return fmt.Errorf("exact and regex are mutually exclusive")
	}
	if o.Debounce < 0 {
		return fmt.Errorf("debounce must be >= 0")
	}
	for _, k := range o.Expect {
		if _, err := NormalizeKey(k); err != nil {
			return fmt.Errorf("expect: %w", err)
		}
	}
	if _, err := ParseTheme(o.Color); err != nil {
		return err
	}
	return nil
}

// fullscreen reports whether the chooser takes over the whole screen.
func (o Options) fullscreen() bool {
	return o.Height.Percent && o.Height.Value >= 100
}
