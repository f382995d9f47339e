package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/sk/internal/config"
	"github.com/runger/sk/internal/outcome"
	"github.com/runger/sk/internal/selector"
	"github.com/runger/sk/internal/session"
	"github.com/runger/sk/internal/tui"
)

// flags holds the raw command line. Options backed by the config file take
// the config value unless the flag was given.
type flags struct {
	// chooser
	bind          []string
	multi         bool
	prompt        string
	expect        string
	tac           bool
	noSort        bool
	tiebreak      string
	exact         bool
	regex         bool
	color         string
	margin        string
	noClear       bool
	height        string
	minHeight     int
	previewWindow string
	reverse       bool
	tabstop       int
	noHScroll     bool
	noMouse       bool
	inlineInfo    bool
	layout        string
	algo          string
	caseMode      string
	sync          bool

	// callbacks
	format         string
	preview        string
	command        string
	interactive    bool
	debounceMs     int
	preSelectN     int
	preSelectPat   string
	preSelectItems []string
	preSelectFile  string
	preSelect      string

	// input and output
	inputFormat string
	query       string
	exit0       bool
	select1     bool
	print0      bool
	output      string
	logFile     string
	noHistory   bool
}

func (f *flags) register(cmd *cobra.Command) {
	d := config.DefaultConfig()
	fs := cmd.Flags()

	fs.StringArrayVar(&f.bind, "bind", nil, "Bind keys to actions (key:action[+action],...)")
	fs.BoolVarP(&f.multi, "multi", "m", false, "Allow selecting several items")
	fs.StringVar(&f.prompt, "prompt", d.UI.Prompt, "Query prompt")
	fs.StringVar(&f.expect, "expect", "", "Comma-separated keys that accept and are reported")
	fs.BoolVar(&f.tac, "tac", false, "List input in reverse order")
	fs.BoolVar(&f.noSort, "no-sort", false, "Keep input order instead of ranking")
	fs.StringVar(&f.tiebreak, "tiebreak", d.UI.Tiebreak, "Ranking criteria (score,begin,end,length,index; prefix - to reverse)")
	fs.BoolVarP(&f.exact, "exact", "e", false, "Match terms literally")
	fs.BoolVar(&f.regex, "regex", false, "Treat the query as a regular expression")
	fs.StringVar(&f.color, "color", d.UI.Color, "Colour scheme and overrides (dark, light, 16, bw; name:colour,...)")
	fs.StringVar(&f.margin, "margin", d.UI.Margin, "Margin around the finder (TRBL, sizes or percentages)")
	fs.BoolVar(&f.noClear, "no-clear", false, "Leave the finder on screen after exit")
	fs.StringVar(&f.height, "height", d.UI.Height, "Finder height (rows or percentage)")
	fs.IntVar(&f.minHeight, "min-height", d.UI.MinHeight, "Minimum finder height when --height is a percentage")
	fs.StringVar(&f.previewWindow, "preview-window", d.UI.PreviewWindow, "Preview geometry ([position][:size][:hidden][:wrap])")
	fs.BoolVar(&f.reverse, "reverse", false, "Same as --layout=reverse")
	fs.IntVar(&f.tabstop, "tabstop", d.UI.Tabstop, "Tab width")
	fs.BoolVar(&f.noHScroll, "no-hscroll", false, "Truncate long lines instead of scrolling to the match")
	fs.BoolVar(&f.noMouse, "no-mouse", false, "Disable mouse input")
	fs.BoolVar(&f.inlineInfo, "inline-info", false, "Show match counts on the prompt line")
	fs.StringVar(&f.layout, "layout", d.UI.Layout, "Layout (default, reverse, reverse-list)")
	fs.StringVar(&f.algo, "algo", d.UI.Algo, "Fuzzy algorithm (skim_v1, skim_v2, clangd)")
	fs.StringVar(&f.caseMode, "case", d.UI.Case, "Case sensitivity (smart, ignore, respect)")
	fs.BoolVar(&f.sync, "sync", false, "Wait for all input before accepting")

	fs.StringVar(&f.format, "format", "", "Callback that computes an item's display text")
	fs.StringVar(&f.preview, "preview", "", "Callback that computes an item's preview")
	fs.StringVarP(&f.command, "cmd", "c", "", "Callback that produces the items for a query")
	fs.BoolVarP(&f.interactive, "interactive", "i", false, "Re-run --cmd whenever the query changes")
	fs.IntVar(&f.debounceMs, "debounce", d.Requery.DebounceMs, "Milliseconds to wait after typing before re-running --cmd")
	fs.IntVar(&f.preSelectN, "pre-select-n", 0, "Pre-select the first N items")
	fs.StringVar(&f.preSelectPat, "pre-select-pat", "", "Pre-select items whose text matches the regular expression")
	fs.StringSliceVar(&f.preSelectItems, "pre-select-items", nil, "Pre-select items with these exact texts")
	fs.StringVar(&f.preSelectFile, "pre-select-file", "", "Pre-select items listed in the file, one per line")
	fs.StringVar(&f.preSelect, "pre-select", "", "Callback deciding whether an item is pre-selected")

	fs.StringVar(&f.inputFormat, "input-format", "text", "Input format (text, jsonl, json)")
	fs.StringVarP(&f.query, "query", "q", "", "Initial query")
	fs.BoolVarP(&f.exit0, "exit-0", "0", false, "Exit immediately when there is no match")
	fs.BoolVarP(&f.select1, "select-1", "1", false, "Accept immediately when there is exactly one match")
	fs.BoolVar(&f.print0, "print0", false, "Terminate output entries with NUL")
	fs.StringVar(&f.output, "output", "plain", "Output format (plain, json)")
	fs.StringVar(&f.logFile, "log-file", "", "Write JSON logs to this file")
	fs.BoolVar(&f.noHistory, "no-history", false, "Do not read or record query history")
}

// tuiOptions merges flags over cfg. Failures are labeled with the option
// that caused them.
func (f *flags) tuiOptions(cmd *cobra.Command, cfg *config.Config) (tui.Options, error) {
	changed := cmd.Flags().Changed
	pick := func(name, flagVal, cfgVal string) string {
		if changed(name) {
			return flagVal
		}
		return cfgVal
	}
	labeled := func(label string, err error) error {
		return &session.ConfigError{Label: label, Err: err}
	}

	o := tui.DefaultOptions()
	o.Multi = f.multi
	o.Prompt = pick("prompt", f.prompt, cfg.UI.Prompt)
	o.Expect = splitList(f.expect)
	o.Tac = f.tac
	o.NoSort = f.noSort
	o.Exact = f.exact
	o.Regex = f.regex
	o.Color = pick("color", f.color, cfg.UI.Color)
	o.NoClear = f.noClear
	o.NoHScroll = f.noHScroll
	o.NoMouse = f.noMouse
	o.InlineInfo = f.inlineInfo
	o.Sync = f.sync
	o.Exit0 = f.exit0
	o.Select1 = f.select1
	o.Preview = f.preview != ""
	o.Interactive = f.interactive

	var err error
	if o.Bind, err = tui.ParseBind(f.bind); err != nil {
		return o, labeled("bind", err)
	}
	if o.Tiebreak, err = tui.ParseTiebreak(pick("tiebreak", f.tiebreak, cfg.UI.Tiebreak)); err != nil {
		return o, labeled("tiebreak", err)
	}
	if o.Algo, err = tui.ParseAlgo(pick("algo", f.algo, cfg.UI.Algo)); err != nil {
		return o, labeled("algo", err)
	}
	if o.Case, err = tui.ParseCase(pick("case", f.caseMode, cfg.UI.Case)); err != nil {
		return o, labeled("case", err)
	}
	if o.Margin, err = tui.ParseMargin(pick("margin", f.margin, cfg.UI.Margin)); err != nil {
		return o, labeled("margin", err)
	}
	if o.Height, err = tui.ParseSize(pick("height", f.height, cfg.UI.Height)); err != nil {
		return o, labeled("height", err)
	}
	if o.PreviewWindow, err = tui.ParsePreviewWindow(pick("preview-window", f.previewWindow, cfg.UI.PreviewWindow)); err != nil {
		return o, labeled("preview-window", err)
	}
	if f.reverse {
		o.Layout = tui.LayoutReverse
	} else if o.Layout, err = tui.ParseLayout(pick("layout", f.layout, cfg.UI.Layout)); err != nil {
		return o, labeled("layout", err)
	}

	o.MinHeight = cfg.UI.MinHeight
	if changed("min-height") {
		o.MinHeight = f.minHeight
	}
	debounce := cfg.Requery.DebounceMs
	if changed("debounce") {
		debounce = f.debounceMs
	}
	o.Debounce = time.Duration(debounce) * time.Millisecond

	if err := o.Validate(); err != nil {
		return o, labeled("options", err)
	}
	return o, nil
}

// sessionOptions builds the session configuration. query is the
// sanitized initial query.
func (f *flags) sessionOptions(cmd *cobra.Command, cfg *config.Config, query string) session.Options {
	tabstop := cfg.UI.Tabstop
	if cmd.Flags().Changed("tabstop") {
		tabstop = f.tabstop
	}
	return session.Options{
		Multi:       f.multi,
		Expect:      splitList(f.expect),
		Interactive: f.interactive,
		Query:       query,
		Policies: selector.Spec{
			FirstN:    f.preSelectN,
			Regex:     f.preSelectPat,
			Preset:    f.preSelectItems,
			File:      f.preSelectFile,
			Predicate: f.preSelect,
		},
		Format:      f.format,
		Preview:     f.preview,
		Requery:     f.command,
		Tabstop:     tabstop,
		InputFormat: f.inputFormat,
	}
}

func (f *flags) writer() (outcome.Writer, error) {
	format, err := outcome.ParseFormat(f.output)
	if err != nil {
		return outcome.Writer{}, &session.ConfigError{Label: "output", Err: err}
	}
	return outcome.Writer{Format: format, Print0: f.print0}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
