// Package render turns item payloads into display text and previews.
package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// listSeparator joins the elements of lists and records in display text.
const listSeparator = ", "

// Text renders a payload as a single string. Scalars render as themselves,
// lists as "[a, b]" and records as "{k: v, ...}" with keys sorted.
func Text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case error:
		return ErrorText(val)
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case []any:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = Text(e)
		}
		return "[" + strings.Join(parts, listSeparator) + "]"
	case []string:
		return "[" + strings.Join(val, listSeparator) + "]"
	case map[string]any:
		keys := SortedKeys(val)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + Text(val[k])
		}
		return "{" + strings.Join(parts, listSeparator) + "}"
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// ErrorText is the display form of an error carried by an item.
func ErrorText(err error) string {
	if err == nil {
		return ""
	}
	return "error: " + err.Error()
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
