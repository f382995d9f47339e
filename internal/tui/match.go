package tui

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"

	"github.com/runger/sk/internal/item"
)

// Match is an item that satisfied the query, with the rune positions of its
// display text that matched.
type Match struct {
	Item      *item.Item
	Score     int
	Positions []int
}

func (m Match) begin() int {
	if len(m.Positions) == 0 {
		return 0
	}
	return m.Positions[0]
}

func (m Match) end() int {
	if len(m.Positions) == 0 {
		return 0
	}
	return m.Positions[len(m.Positions)-1]
}

// Matcher filters and ranks items against a query.
type Matcher struct {
	algo     Algo
	caseMode CaseMode
	exact    bool
	regex    bool
	tiebreak []Criterion
	noSort   bool
	tac      bool
}

// NewMatcher returns the matcher configured by o.
func NewMatcher(o Options) *Matcher {
	tb := o.Tiebreak
	if len(tb) == 0 {
		tb = DefaultTiebreak
	}
	return &Matcher{
		algo:     o.Algo,
		caseMode: o.Case,
		exact:    o.Exact,
		regex:    o.Regex,
		tiebreak: tb,
		noSort:   o.NoSort,
		tac:      o.Tac,
	}
}

// ToggleSort flips sorting of results on or off.
func (mt *Matcher) ToggleSort() { mt.noSort = !mt.noSort }

// Match returns the items matching query in display order. An empty query
// matches everything in input order. The error is non-nil only for an
// invalid regular expression in regex mode.
func (mt *Matcher) Match(query string, items []*item.Item) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		out := make([]Match, len(items))
		for i, it := range items {
			out[i] = Match{Item: it}
		}
		mt.order(out, false)
		return out, nil
	}

	sensitive := mt.caseSensitive(query)
	var out []Match
	var err error
	if mt.regex {
		out, err = mt.matchRegex(query, items, sensitive)
		if err != nil {
			return nil, err
		}
	} else {
		out = mt.matchTerms(parseTerms(query, mt.exact), items, sensitive)
	}
	mt.order(out, !mt.noSort)
	return out, nil
}

func (mt *Matcher) caseSensitive(query string) bool {
	switch mt.caseMode {
	case CaseRespect:
		return true
	case CaseIgnore:
		return false
	default:
		return strings.IndexFunc(query, unicode.IsUpper) >= 0
	}
}

func (mt *Matcher) matchRegex(query string, items []*item.Item, sensitive bool) ([]Match, error) {
	pattern := query
	if !sensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}
	var out []Match
	for _, it := range items {
		text := it.Text()
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		start := utf8.RuneCountInString(text[:loc[0]])
		n := utf8.RuneCountInString(text[loc[0]:loc[1]])
		out = append(out, Match{Item: it, Score: -start, Positions: span(start, n)})
	}
	return out, nil
}

type termKind int

const (
	termFuzzy termKind = iota
	termExact
	termPrefix
	termSuffix
	termEqual
)

type term struct {
	text   []rune
	kind   termKind
	negate bool
}

// parseTerms splits an extended query into space-separated terms. A term
// may be prefixed with ! (negate), ' (toggle exact), ^ (prefix) and
// suffixed with $ (suffix). "\ " is a literal space.
func parseTerms(query string, exact bool) []term {
	var terms []term
	for _, tok := range splitQuery(query) {
		t := term{kind: termFuzzy}
		if exact {
			t.kind = termExact
		}
		if strings.HasPrefix(tok, "!") && len(tok) > 1 {
			t.negate = true
			t.kind = termExact
			tok = tok[1:]
		}
		switch {
		case strings.HasPrefix(tok, "'") && len(tok) > 1:
			tok = tok[1:]
			if exact && !t.negate {
				t.kind = termFuzzy
			} else {
				t.kind = termExact
			}
		case strings.HasPrefix(tok, "^") && strings.HasSuffix(tok, "$") && len(tok) > 2:
			tok = tok[1 : len(tok)-1]
			t.kind = termEqual
		case strings.HasPrefix(tok, "^") && len(tok) > 1:
			tok = tok[1:]
			t.kind = termPrefix
		case strings.HasSuffix(tok, "$") && len(tok) > 1 && !strings.HasSuffix(tok, `\$`):
			tok = tok[:len(tok)-1]
			t.kind = termSuffix
		}
		t.text = []rune(tok)
		terms = append(terms, t)
	}
	return terms
}

func splitQuery(q string) []string {
	var out []string
	var cur strings.Builder
	runes := []rune(q)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\\' && i+1 < len(runes) && runes[i+1] == ' ' {
			cur.WriteRune(' ')
			i++
			continue
		}
		if r == ' ' {
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			continue
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// candidates adapts display texts to fuzzy.Source.
type candidates []string

func (c candidates) String(i int) string { return c[i] }
func (c candidates) Len() int            { return len(c) }

type partial struct {
	score     int
	positions []int
}

func (mt *Matcher) matchTerms(terms []term, items []*item.Item, sensitive bool) []Match {
	alive := make([]int, len(items))
	for i := range items {
		alive[i] = i
	}
	acc := make(map[int]*partial, len(items))
	for _, i := range alive {
		acc[i] = &partial{}
	}

	for _, t := range terms {
		if len(alive) == 0 {
			break
		}
		var next []int
		if t.kind == termFuzzy {
			next = mt.fuzzyTerm(t, items, alive, sensitive, acc)
		} else {
			for _, i := range alive {
				pos, score, ok := literalMatch(t, []rune(items[i].Text()), sensitive)
				if ok == t.negate {
					continue
				}
				if !t.negate {
					acc[i].score += score
					acc[i].positions = append(acc[i].positions, pos...)
				}
				next = append(next, i)
			}
		}
		alive = next
	}

	out := make([]Match, 0, len(alive))
	for _, i := range alive {
		p := acc[i]
		out = append(out, Match{Item: items[i], Score: p.score, Positions: dedupe(p.positions)})
	}
	return out
}

func (mt *Matcher) fuzzyTerm(t term, items []*item.Item, alive []int, sensitive bool, acc map[int]*partial) []int {
	texts := make(candidates, len(alive))
	for k, i := range alive {
		texts[k] = items[i].Text()
	}
	var next []int
	for _, fm := range fuzzy.FindFrom(string(t.text), texts) {
		i := alive[fm.Index]
		text := texts[fm.Index]
		if sensitive && !subsequence([]rune(text), t.text) {
			continue
		}
		pos := runePositions(text, fm.MatchedIndexes)
		if mt.algo == AlgoClangd && len(pos) > 0 && !wordStart([]rune(text), pos[0]) {
			continue
		}
		score := fm.Score
		if mt.algo == AlgoSkimV1 && len(pos) > 0 {
			score = -(pos[len(pos)-1] - pos[0] + 1)
		}
		acc[i].score += score
		acc[i].positions = append(acc[i].positions, pos...)
		next = append(next, i)
	}
	// fuzzy returns best matches first; keep input order so later terms and
	// the final ranking see a stable sequence.
	sort.Ints(next)
	return next
}

// literalMatch matches a non-fuzzy term against text. The score rewards
// matches near the start.
func literalMatch(t term, text []rune, sensitive bool) ([]int, int, bool) {
	hay, needle := text, t.text
	if !sensitive {
		hay, needle = foldRunes(text), foldRunes(t.text)
	}
	n := len(needle)
	switch t.kind {
	case termPrefix:
		if n <= len(hay) && equalRunes(hay[:n], needle) {
			return span(0, n), 2 * n * 16, true
		}
	case termSuffix:
		if n <= len(hay) && equalRunes(hay[len(hay)-n:], needle) {
			return span(len(hay)-n, n), 2 * n * 16, true
		}
	case termEqual:
		if equalRunes(hay, needle) {
			return span(0, n), 3 * n * 16, true
		}
	default:
		if idx := indexRunes(hay, needle); idx >= 0 {
			return span(idx, n), n*16 - idx, true
		}
	}
	return nil, 0, false
}

// order sorts matches by the tiebreak criteria when sorted is set and by
// input position otherwise. Tac reverses input positions.
func (mt *Matcher) order(ms []Match, sorted bool) {
	indexLess := func(a, b Match) bool {
		if mt.tac {
			return a.Item.Index() > b.Item.Index()
		}
		return a.Item.Index() < b.Item.Index()
	}
	if !sorted {
		sort.SliceStable(ms, func(i, j int) bool { return indexLess(ms[i], ms[j]) })
		return
	}
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		for _, c := range mt.tiebreak {
			var x, y int
			switch c.Key {
			case "score":
				// Higher scores first.
				x, y = -a.Score, -b.Score
			case "begin":
				x, y = a.begin(), b.begin()
			case "end":
				x, y = a.end(), b.end()
			case "length":
				x, y = utf8.RuneCountInString(a.Item.Text()), utf8.RuneCountInString(b.Item.Text())
			case "index":
				x, y = a.Item.Index(), b.Item.Index()
				if mt.tac {
					x, y = -x, -y
				}
			}
			if c.Desc {
				x, y = -x, -y
			}
			if x != y {
				return x < y
			}
		}
		return indexLess(a, b)
	})
}

func span(start, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = start + i
	}
	return out
}

// runePositions converts byte offsets into s to rune offsets.
func runePositions(s string, bytePos []int) []int {
	if len(bytePos) == 0 {
		return nil
	}
	want := make(map[int]bool, len(bytePos))
	for _, b := range bytePos {
		want[b] = true
	}
	out := make([]int, 0, len(bytePos))
	ri := 0
	for bi := range s {
		if want[bi] {
			out = append(out, ri)
		}
		ri++
	}
	return out
}

func dedupe(pos []int) []int {
	if len(pos) < 2 {
		return pos
	}
	sort.Ints(pos)
	out := pos[:1]
	for _, p := range pos[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}

func foldRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

func equalRunes(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func indexRunes(hay, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
	for i := 0; i+len(needle) <= len(hay); i++ {
		if equalRunes(hay[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

// subsequence reports whether needle occurs in hay in order, case
// sensitively.
func subsequence(hay, needle []rune) bool {
	j := 0
	for _, r := range hay {
		if j < len(needle) && r == needle[j] {
			j++
		}
	}
	return j == len(needle)
}

// wordStart reports whether rune i of s begins a word: the first rune, a
// rune after a separator, or an upper-case rune after a lower-case one.
func wordStart(s []rune, i int) bool {
	if i == 0 {
		return true
	}
	prev, cur := s[i-1], s[i]
	if !unicode.IsLetter(prev) && !unicode.IsDigit(prev) {
		return true
	}
	return unicode.IsUpper(cur) && unicode.IsLower(prev)
}
