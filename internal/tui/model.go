package tui

import (
	"context"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runger/sk/internal/feed"
	"github.com/runger/sk/internal/item"
	"github.com/runger/sk/internal/outcome"
	"github.com/runger/sk/internal/session"
)

// batchSize bounds how many items one itemsMsg carries.
const batchSize = 512

// itemsMsg delivers items read from the generation subscribed as sub.
type itemsMsg struct {
	sub   uint64
	items []*item.Item
	done  bool
}

// debounceMsg fires after the requery debounce timer expires.
type debounceMsg struct {
	id uint64 // Must match current debounceID to be accepted
}

// previewKey identifies a rendered preview.
type previewKey struct {
	sub   uint64
	index int
	width int
}

// previewMsg carries a preview rendered off the UI loop.
type previewMsg struct {
	key  previewKey
	text string
}

// initMsg is sent by Init() so that the first subscription happens in
// Update, where state mutations are kept.
type initMsg struct{}

// Model is the Bubble Tea model of the chooser.
type Model struct {
	opts    Options
	theme   Theme
	matcher *Matcher
	input   textinput.Model
	expect  map[string]string // normalized key -> key as configured

	ctx     context.Context
	static  *feed.Generation
	requery session.Requerier

	// sub numbers subscriptions; batches for any other value are stale.
	sub      uint64
	gen      *feed.Generation
	items    []*item.Item
	done     bool
	settled  bool // the first generation has completed
	matches  []Match
	matchErr error
	chosen   map[int]bool // item indexes selected in multi mode
	cursor   int          // index into matches; -1 when empty
	offset   int          // first visible match

	previewHidden bool
	previewKey    previewKey
	previewText   string
	previewScroll int

	debounceID uint64
	histIdx    int
	draft      string

	width  int
	height int

	quitting bool
	result   outcome.Outcome
}

// NewModel creates a chooser for f. It fails only on an invalid colour
// spec.
func NewModel(ctx context.Context, opts Options, f session.Feed) (Model, error) {
	theme, err := ParseTheme(opts.Color)
	if err != nil {
		return Model{}, err
	}
	if opts.Prompt == "" {
		opts.Prompt = "> "
	}

	in := textinput.New()
	in.Prompt = opts.Prompt
	in.PromptStyle = theme.Prompt
	in.TextStyle = theme.Query
	in.SetValue(f.Query)
	in.CursorEnd()
	in.Focus()

	expect := make(map[string]string, len(opts.Expect))
	for _, k := range opts.Expect {
		if norm, err := NormalizeKey(k); err == nil {
			expect[norm] = k
		}
	}

	m := Model{
		opts:          opts,
		theme:         theme,
		matcher:       NewMatcher(opts),
		input:         in,
		expect:        expect,
		ctx:           ctx,
		static:        f.Static,
		requery:       f.Requery,
		chosen:        map[int]bool{},
		cursor:        -1,
		previewHidden: opts.PreviewWindow.Hidden,
		histIdx:       len(opts.History),
		result:        outcome.Abort(),
	}
	return m, nil
}

// Outcome is how the session ended; Aborted until the user accepts.
func (m Model) Outcome() outcome.Outcome { return m.result }

// Query returns the current query text.
func (m Model) Query() string { return m.input.Value() }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, func() tea.Msg { return initMsg{} })
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case initMsg:
		if m.requery != nil {
			cmd := m.subscribe(m.requery.Invoke(m.ctx, m.Query()))
			return m, cmd
		}
		if m.static == nil {
			m.done = true
			cmd := m.onDone()
			return m, cmd
		}
		cmd := m.subscribe(m.static)
		return m, cmd

	case itemsMsg:
		return m.handleItems(msg)

	case debounceMsg:
		if msg.id != m.debounceID || m.requery == nil {
			return m, nil // Stale debounce timer; ignore.
		}
		cmd := m.subscribe(m.requery.Invoke(m.ctx, m.Query()))
		return m, cmd

	case previewMsg:
		if msg.key == m.previewKey {
			m.previewText = msg.text
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampOffset()
		cmd := m.requestPreview()
		return m, cmd

	case tea.MouseMsg:
		if m.opts.NoMouse || msg.Action != tea.MouseActionPress {
			return m, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			return m.runActions([]Action{ActUp})
		case tea.MouseButtonWheelDown:
			return m.runActions([]Action{ActDown})
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// subscribe switches to g. The previous generation is interrupted in the
// same step, so none of its batches can be applied afterwards.
func (m *Model) subscribe(g *feed.Generation) tea.Cmd {
	if m.gen != nil && m.gen != g {
		m.gen.Interrupt()
	}
	m.sub++
	m.gen = g
	m.items = nil
	m.matches = nil
	m.matchErr = nil
	m.chosen = map[int]bool{}
	m.done = false
	m.cursor = -1
	m.offset = 0
	return waitForItems(m.sub, g.Items)
}

// waitForItems blocks for the next item, then drains whatever else is
// ready up to batchSize.
func waitForItems(sub uint64, ch <-chan *item.Item) tea.Cmd {
	return func() tea.Msg {
		it, ok := <-ch
		if !ok {
			return itemsMsg{sub: sub, done: true}
		}
		batch := []*item.Item{it}
		for len(batch) < batchSize {
			select {
			case it, ok := <-ch:
				if !ok {
					return itemsMsg{sub: sub, items: batch, done: true}
				}
				batch = append(batch, it)
			default:
				return itemsMsg{sub: sub, items: batch}
			}
		}
		return itemsMsg{sub: sub, items: batch}
	}
}

func (m Model) handleItems(msg itemsMsg) (tea.Model, tea.Cmd) {
	if msg.sub != m.sub {
		return m, nil
	}
	for _, it := range msg.items {
		m.items = append(m.items, it)
		if m.opts.Multi && it.Preselected() {
			m.chosen[it.Index()] = true
		}
	}

	keep := m.currentIndex()
	m.refilter()
	m.restoreCursor(keep)

	if msg.done {
		m.done = true
		if cmd := m.onDone(); cmd != nil {
			return m, cmd
		}
		cmd := m.requestPreview()
		return m, cmd
	}
	preview := m.requestPreview()
	return m, tea.Batch(waitForItems(m.sub, m.gen.Items), preview)
}

// onDone applies exit-0 and select-1 once the first generation completes.
// Later generations, produced by interactive requeries, never end the
// session on their own.
func (m *Model) onDone() tea.Cmd {
	if m.settled {
		return nil
	}
	m.settled = true
	switch {
	case m.opts.Exit0 && len(m.items) == 0:
		m.result = outcome.Select()
		m.quitting = true
		return tea.Quit
	case m.opts.Select1 && len(m.matches) == 1:
		m.result = outcome.Select(m.matches[0].Item.Payload())
		m.quitting = true
		return tea.Quit
	}
	return nil
}

func (m *Model) refilter() {
	query := m.Query()
	if m.opts.Interactive {
		query = ""
	}
	matches, err := m.matcher.Match(query, m.items)
	m.matchErr = err
	m.matches = matches
	m.clampCursor()
}

func (m Model) currentIndex() int {
	if it := m.current(); it != nil {
		return it.Index()
	}
	return -1
}

// restoreCursor keeps the cursor on item index when it is still listed.
func (m *Model) restoreCursor(index int) {
	if index < 0 {
		return
	}
	for i, mt := range m.matches {
		if mt.Item.Index() == index {
			m.cursor = i
			m.clampOffset()
			return
		}
	}
}

func (m Model) current() *item.Item {
	if m.cursor < 0 || m.cursor >= len(m.matches) {
		return nil
	}
	return m.matches[m.cursor].Item
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if name, ok := m.expect[key]; ok {
		return m.accept(name)
	}
	if acts, ok := m.opts.Bind[key]; ok {
		return m.runActions(acts)
	}

	switch key {
	case "enter":
		return m.accept("")
	case "esc", "ctrl+c", "ctrl+g", "ctrl+q":
		return m.runActions([]Action{ActAbort})
	case "up", "ctrl+k":
		return m.runActions([]Action{ActUp})
	case "down", "ctrl+j":
		return m.runActions([]Action{ActDown})
	case "ctrl+p":
		if len(m.opts.History) > 0 {
			return m.runActions([]Action{ActPrevHistory})
		}
		return m.runActions([]Action{ActUp})
	case "ctrl+n":
		if len(m.opts.History) > 0 {
			return m.runActions([]Action{ActNextHistory})
		}
		return m.runActions([]Action{ActDown})
	case "pgup":
		return m.runActions([]Action{ActPageUp})
	case "pgdown":
		return m.runActions([]Action{ActPageDown})
	case "shift+up":
		return m.runActions([]Action{ActPreviewUp})
	case "shift+down":
		return m.runActions([]Action{ActPreviewDown})
	case "tab":
		if m.opts.Multi {
			m.toggle()
			m.moveRank(1)
			cmd := m.requestPreview()
			return m, cmd
		}
		return m, nil
	case "shift+tab":
		if m.opts.Multi {
			m.toggle()
			m.moveRank(-1)
			cmd := m.requestPreview()
			return m, cmd
		}
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		change := m.onQueryChange()
		return m, tea.Batch(cmd, change)
	}
	return m, cmd
}

// runActions executes a bound action chain. An accept or abort ends the
// chain.
func (m Model) runActions(acts []Action) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	for _, a := range acts {
		switch a {
		case ActAccept:
			return m.accept("")
		case ActAbort:
			m.result = outcome.Abort()
			m.quitting = true
			return m, tea.Quit
		case ActUp:
			m.moveVisual(-1)
		case ActDown:
			m.moveVisual(1)
		case ActPageUp:
			m.moveVisual(-m.listHeight())
		case ActPageDown:
			m.moveVisual(m.listHeight())
		case ActFirst:
			m.setCursor(0)
		case ActLast:
			m.setCursor(len(m.matches) - 1)
		case ActToggle:
			m.toggle()
		case ActToggleAll:
			if m.opts.Multi {
				for _, mt := range m.matches {
					if idx := mt.Item.Index(); m.chosen[idx] {
						delete(m.chosen, idx)
					} else {
						m.chosen[idx] = true
					}
				}
			}
		case ActSelectAll:
			if m.opts.Multi {
				for _, mt := range m.matches {
					m.chosen[mt.Item.Index()] = true
				}
			}
		case ActDeselectAll:
			m.chosen = map[int]bool{}
		case ActTogglePrev:
			m.previewHidden = !m.previewHidden
		case ActPreviewUp:
			if m.previewScroll > 0 {
				m.previewScroll--
			}
		case ActPreviewDown:
			m.previewScroll++
		case ActClearQuery:
			if m.input.Value() != "" {
				m.input.SetValue("")
				cmds = append(cmds, m.onQueryChange())
			}
		case ActPrevHistory:
			cmds = append(cmds, m.recall(-1))
		case ActNextHistory:
			cmds = append(cmds, m.recall(1))
		case ActToggleSort:
			m.matcher.ToggleSort()
			m.refilter()
		case ActIgnore:
		}
	}
	m.previewScroll = max(m.previewScroll, 0)
	cmds = append(cmds, m.requestPreview())
	return m, tea.Batch(cmds...)
}

// accept ends the session with the chosen payloads. In multi mode the
// selected items are returned in input order; without a selection the item
// under the cursor is.
func (m Model) accept(action string) (tea.Model, tea.Cmd) {
	if m.opts.Sync && !m.done {
		return m, nil
	}
	var payloads []any
	if m.opts.Multi && len(m.chosen) > 0 {
		payloads = m.chosenPayloads()
	} else if it := m.current(); it != nil {
		payloads = []any{it.Payload()}
	}

	if action != "" {
		m.result = outcome.SelectWithAction(action, payloads...)
	} else {
		m.result = outcome.Select(payloads...)
	}
	m.quitting = true
	if m.gen != nil {
		m.gen.Interrupt()
	}
	return m, tea.Quit
}

func (m Model) chosenPayloads() []any {
	var its []*item.Item
	for _, it := range m.items {
		if m.chosen[it.Index()] {
			its = append(its, it)
		}
	}
	sort.SliceStable(its, func(i, j int) bool { return its[i].Index() < its[j].Index() })
	out := make([]any, len(its))
	for i, it := range its {
		out[i] = it.Payload()
	}
	return out
}

func (m *Model) toggle() {
	if !m.opts.Multi {
		return
	}
	it := m.current()
	if it == nil {
		return
	}
	if m.chosen[it.Index()] {
		delete(m.chosen, it.Index())
	} else {
		m.chosen[it.Index()] = true
	}
}

// onQueryChange refilters locally, or schedules a requery after the
// debounce interval in interactive mode.
func (m *Model) onQueryChange() tea.Cmd {
	if m.requery != nil && m.opts.Interactive {
		m.debounceID++
		id := m.debounceID
		if m.opts.Debounce <= 0 {
			return func() tea.Msg { return debounceMsg{id: id} }
		}
		return tea.Tick(m.opts.Debounce, func(time.Time) tea.Msg {
			return debounceMsg{id: id}
		})
	}
	m.refilter()
	m.cursor = min(0, len(m.matches)-1)
	m.offset = 0
	return m.requestPreview()
}

// recall steps through query history; dir -1 is older.
func (m *Model) recall(dir int) tea.Cmd {
	hist := m.opts.History
	if len(hist) == 0 {
		return nil
	}
	if m.histIdx == len(hist) {
		m.draft = m.input.Value()
	}
	next := m.histIdx + dir
	if next < 0 || next > len(hist) {
		return nil
	}
	m.histIdx = next
	if next == len(hist) {
		m.input.SetValue(m.draft)
	} else {
		m.input.SetValue(hist[next])
	}
	m.input.CursorEnd()
	return m.onQueryChange()
}

// moveRank moves the cursor by delta positions in ranking order.
func (m *Model) moveRank(delta int) {
	m.setCursor(m.cursor + delta)
}

// moveVisual moves the cursor by delta rows on screen, negative being up.
// In the default layout the best match is at the bottom.
func (m *Model) moveVisual(delta int) {
	if m.opts.Layout == LayoutDefault {
		delta = -delta
	}
	m.moveRank(delta)
}

func (m *Model) setCursor(c int) {
	if len(m.matches) == 0 {
		m.cursor = -1
		return
	}
	m.cursor = max(0, min(c, len(m.matches)-1))
	m.clampOffset()
}

// clampCursor ensures the cursor is within bounds.
func (m *Model) clampCursor() {
	if len(m.matches) == 0 {
		m.cursor = -1
		m.offset = 0
		return
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.matches) {
		m.cursor = len(m.matches) - 1
	}
	m.clampOffset()
}

// clampOffset scrolls so the cursor row is visible.
func (m *Model) clampOffset() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// requestPreview returns a command rendering the preview of the current
// item when it is not already shown.
func (m *Model) requestPreview() tea.Cmd {
	if !m.opts.Preview || m.previewHidden {
		return nil
	}
	it := m.current()
	if it == nil {
		m.previewKey = previewKey{}
		m.previewText = ""
		return nil
	}
	width, _ := m.previewSize()
	clip := width
	if m.opts.PreviewWindow.Wrap {
		clip = 0
	}
	key := previewKey{sub: m.sub, index: it.Index(), width: width}
	if key == m.previewKey {
		return nil
	}
	m.previewKey = key
	m.previewScroll = 0
	ctx := m.ctx
	return func() tea.Msg {
		return previewMsg{key: key, text: it.Preview(ctx, clip)}
	}
}
