package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, ""},
		{"string", "alpha", "alpha"},
		{"bool", true, "true"},
		{"integral float", float64(42), "42"},
		{"fraction", 1.5, "1.5"},
		{"int", 7, "7"},
		{"list", []any{"a", float64(1)}, "[a, 1]"},
		{"record", map[string]any{"b": "x", "a": float64(2)}, "{a: 2, b: x}"},
		{"nested", map[string]any{"l": []any{true}}, "{l: [true]}"},
		{"error", errors.New("boom"), "error: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.input))
		})
	}
}

func TestTable_String(t *testing.T) {
	assert.Equal(t, "\x1b[1mstyled\x1b[0m", Table("\x1b[1mstyled\x1b[0m", 0))
}

func TestTable_Record(t *testing.T) {
	out := ansi.Strip(Table(map[string]any{"name": "sk", "size": float64(3)}, 40))
	assert.Contains(t, out, "name")
	assert.Contains(t, out, "sk")
	assert.Contains(t, out, "size")
	assert.Less(t, strings.Index(out, "name"), strings.Index(out, "size"))
}

func TestTable_ListOfRecords(t *testing.T) {
	out := ansi.Strip(Table([]any{
		map[string]any{"a": "1"},
		map[string]any{"b": "2"},
	}, 0))
	assert.Contains(t, out, "#")
	assert.Contains(t, out, "a")
	assert.Contains(t, out, "b")
}

func TestTable_ClipsToWidth(t *testing.T) {
	out := Table([]any{strings.Repeat("x", 200)}, 30)
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, ansi.StringWidth(line), 30)
	}
}

func TestTable_EmptyCollections(t *testing.T) {
	assert.Equal(t, "[]", Table([]any{}, 0))
	assert.Equal(t, "{}", Table(map[string]any{}, 0))
}
