package tui

import (
	"fmt"
	"strings"
)

// keyAliases maps sk key names to the names Bubble Tea reports.
var keyAliases = map[string]string{
	"enter":  "enter",
	"return": "enter",
	"esc":    "esc",
	"tab":    "tab",
	"btab":   "shift+tab",
	"bspace": "backspace",
	"bs":     "backspace",
	"del":    "delete",
	"up":     "up",
	"down":   "down",
	"left":   "left",
	"right":  "right",
	"home":   "home",
	"end":    "end",
	"pgup":   "pgup",
	"pgdn":   "pgdown",
	"space":  " ",

	"ctrl-space":  "ctrl+@",
	"shift-up":    "shift+up",
	"shift-down":  "shift+down",
	"shift-left":  "shift+left",
	"shift-right": "shift+right",
	"ctrl-up":     "ctrl+up",
	"ctrl-down":   "ctrl+down",
	"ctrl-left":   "ctrl+left",
	"ctrl-right":  "ctrl+right",
}

// NormalizeKey converts a key in sk notation (ctrl-x, alt-a, btab, f1) to
// the string Bubble Tea's KeyMsg reports for it.
func NormalizeKey(k string) (string, error) {
	k = strings.TrimSpace(k)
	if k == "" {
		return "", fmt.Errorf("empty key")
	}
	if v, ok := keyAliases[strings.ToLower(k)]; ok {
		return v, nil
	}
	lower := strings.ToLower(k)
	switch {
	case strings.HasPrefix(lower, "ctrl-alt-") && len(lower) == len("ctrl-alt-")+1:
		return "ctrl+alt+" + lower[len("ctrl-alt-"):], nil
	case strings.HasPrefix(lower, "ctrl-") && len(lower) == len("ctrl-")+1:
		c := lower[len("ctrl-"):]
		if c[0] < 'a' || c[0] > 'z' {
			return "", fmt.Errorf("unsupported key %q", k)
		}
		return "ctrl+" + c, nil
	case strings.HasPrefix(lower, "alt-"):
		rest := k[len("alt-"):]
		if inner, ok := keyAliases[strings.ToLower(rest)]; ok {
			return "alt+" + inner, nil
		}
		if len([]rune(rest)) == 1 {
			return "alt+" + rest, nil
		}
	case len(lower) >= 2 && lower[0] == 'f':
		var n int
		if _, err := fmt.Sscanf(lower[1:], "%d", &n); err == nil && n >= 1 && n <= 20 && fmt.Sprint(n) == lower[1:] {
			return lower, nil
		}
	case len([]rune(k)) == 1:
		return k, nil
	}
	return "", fmt.Errorf("unsupported key %q", k)
}

// Action is a named chooser operation that keys can be bound to.
type Action string

const (
	ActAccept      Action = "accept"
	ActAbort       Action = "abort"
	ActUp          Action = "up"
	ActDown        Action = "down"
	ActPageUp      Action = "page-up"
	ActPageDown    Action = "page-down"
	ActFirst       Action = "first"
	ActLast        Action = "last"
	ActToggle      Action = "toggle"
	ActToggleAll   Action = "toggle-all"
	ActSelectAll   Action = "select-all"
	ActDeselectAll Action = "deselect-all"
	ActTogglePrev  Action = "toggle-preview"
	ActPreviewUp   Action = "preview-up"
	ActPreviewDown Action = "preview-down"
	ActClearQuery  Action = "clear-query"
	ActPrevHistory Action = "previous-history"
	ActNextHistory Action = "next-history"
	ActToggleSort  Action = "toggle-sort"
	ActIgnore      Action = "ignore"
)

var actionAliases = map[string]Action{
	"cancel": ActAbort,
	"top":    ActFirst,
}

var knownActions = map[Action]bool{
	ActAccept: true, ActAbort: true, ActUp: true, ActDown: true,
	ActPageUp: true, ActPageDown: true, ActFirst: true, ActLast: true,
	ActToggle: true, ActToggleAll: true, ActSelectAll: true, ActDeselectAll: true,
	ActTogglePrev: true, ActPreviewUp: true, ActPreviewDown: true,
	ActClearQuery: true, ActPrevHistory: true, ActNextHistory: true,
	ActToggleSort: true, ActIgnore: true,
}

// ParseActions parses an action chain such as "toggle+down".
func ParseActions(s string) ([]Action, error) {
	var out []Action
	for _, name := range strings.Split(s, "+") {
		name = strings.TrimSpace(name)
		a := Action(name)
		if alias, ok := actionAliases[name]; ok {
			a = alias
		}
		if !knownActions[a] {
			return nil, fmt.Errorf("unknown action %q", name)
		}
		out = append(out, a)
	}
	return out, nil
}

// ParseBind parses bindings written as "key:action[+action...]", several
// of which may be joined with commas. Later bindings for the same key win.
func ParseBind(specs []string) (map[string][]Action, error) {
	binds := make(map[string][]Action)
	for _, spec := range specs {
		for _, b := range splitBindings(spec) {
			key, chain, ok := strings.Cut(b, ":")
			if !ok {
				return nil, fmt.Errorf("bind %q: want key:action", b)
			}
			norm, err := NormalizeKey(key)
			if err != nil {
				return nil, fmt.Errorf("bind %q: %w", b, err)
			}
			acts, err := ParseActions(chain)
			if err != nil {
				return nil, fmt.Errorf("bind %q: %w", b, err)
			}
			binds[norm] = acts
		}
	}
	return binds, nil
}

// splitBindings splits on commas that start a new binding, so a comma bound
// as a key (",:accept") survives.
func splitBindings(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' && i > start {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
