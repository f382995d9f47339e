package tui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLayout(t *testing.T) {
	tests := []struct {
		in      string
		want    Layout
		wantErr bool
	}{
		{"", LayoutDefault, false},
		{"default", LayoutDefault, false},
		{"reverse", LayoutReverse, false},
		{"reverse-list", LayoutReverseList, false},
		{"sideways", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLayout(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAlgoAndCase(t *testing.T) {
	a, err := ParseAlgo("clangd")
	require.NoError(t, err)
	assert.Equal(t, AlgoClangd, a)
	a, err = ParseAlgo("")
	require.NoError(t, err)
	assert.Equal(t, AlgoSkimV2, a)
	_, err = ParseAlgo("fzf")
	assert.Error(t, err)

	c, err := ParseCase("respect")
	require.NoError(t, err)
	assert.Equal(t, CaseRespect, c)
	_, err = ParseCase("upper")
	assert.Error(t, err)
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    Size
		wantErr bool
	}{
		{"12", Size{Value: 12}, false},
		{"40%", Size{Value: 40, Percent: true}, false},
		{" 100% ", Size{Value: 100, Percent: true}, false},
		{"101%", Size{}, true},
		{"-1", Size{}, true},
		{"abc", Size{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, 10, Size{Value: 50, Percent: true}.Of(20))
	assert.Equal(t, 7, Size{Value: 7}.Of(20))
}

func TestParseMargin(t *testing.T) {
	one, two := Size{Value: 1}, Size{Value: 2}
	three, four := Size{Value: 3}, Size{Value: 4}

	tests := []struct {
		in      string
		want    Margin
		wantErr bool
	}{
		{"", Margin{}, false},
		{"1", Margin{one, one, one, one}, false},
		{"1,2", Margin{one, two, one, two}, false},
		{"1,2,3", Margin{one, two, three, two}, false},
		{"1,2,3,4", Margin{one, two, three, four}, false},
		{"1,2,3,4,5", Margin{}, true},
		{"1,x", Margin{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMargin(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePreviewWindow(t *testing.T) {
	pw, err := ParsePreviewWindow("")
	require.NoError(t, err)
	assert.Equal(t, PreviewWindow{Position: PositionRight, Size: Size{Value: 50, Percent: true}}, pw)

	pw, err = ParsePreviewWindow("up:10:hidden:wrap")
	require.NoError(t, err)
	assert.Equal(t, PreviewWindow{Position: PositionUp, Size: Size{Value: 10}, Hidden: true, Wrap: true}, pw)

	pw, err = ParsePreviewWindow("left:30%")
	require.NoError(t, err)
	assert.Equal(t, PositionLeft, pw.Position)
	assert.Equal(t, Size{Value: 30, Percent: true}, pw.Size)

	_, err = ParsePreviewWindow("right:diagonal")
	assert.Error(t, err)
}

func TestParseTiebreak(t *testing.T) {
	got, err := ParseTiebreak("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTiebreak, got)

	got, err = ParseTiebreak("score, -length,index")
	require.NoError(t, err)
	assert.Equal(t, []Criterion{{Key: "score"}, {Key: "length", Desc: true}, {Key: "index"}}, got)

	_, err = ParseTiebreak("score,height")
	assert.Error(t, err)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"negative min height", func(o *Options) { o.MinHeight = -1 }},
		{"exact with regex", func(o *Options) { o.Exact, o.Regex = true, true }},
		{"negative debounce", func(o *Options) { o.Debounce = -time.Second }},
		{"bad expect key", func(o *Options) { o.Expect = []string{"ctrl-"} }},
		{"bad color", func(o *Options) { o.Color = "matched:purple" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.mutate(&o)
			assert.Error(t, o.Validate())
		})
	}
}

func TestFullscreen(t *testing.T) {
	o := DefaultOptions()
	assert.True(t, o.fullscreen())
	o.Height = Size{Value: 40, Percent: true}
	assert.False(t, o.fullscreen())
}
