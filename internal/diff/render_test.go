package diff

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func TestPatch(t *testing.T) {
	_, ok := Patch("same", "same", 3)
	assert.False(t, ok)

	patch, ok := Patch("a\nb\nc", "a\nx\nc", 3)
	assert.True(t, ok)
	assert.Equal(t, "@@ −1,3 +1,3 @@\n"+fs+"a\n−b\n+x\n"+fs+"c", patch)
}

func TestRender_Empty(t *testing.T) {
	assert.Equal(t, "", Render(nil))
}

func TestRenderColor_StripsToRender(t *testing.T) {
	cases := []struct {
		a, b string
	}{
		{"a\nb\nc", "a\nx\nc"},
		{"hello world\nsecond", "hello there world\nsecond\nthird"},
		{"one\ntwo\nthree", "uno"},
		{"", "only new"},
		{"trailing \nx", "trailing \ny"},
	}

	for _, c := range cases {
		hunks := Group(Lines(c.a, c.b), 2)
		colored := RenderColor(hunks)
		assert.Contains(t, colored, "\x1b[")
		assert.Equal(t, Render(hunks), ansi.ReplaceAllString(colored, ""), "a=%q b=%q", c.a, c.b)
	}
}

func TestRenderColor_HighlightsChangedSegment(t *testing.T) {
	hunks := Group(Lines("hello world", "hello there world"), 1)
	colored := RenderColor(hunks)

	// The inserted word is emphasized with a green background; the unchanged words are not.
	assert.Contains(t, colored, "\x1b[30;42m")
	assert.NotContains(t, colored, "\x1b[30;41m")
	assert.Contains(t, ansi.ReplaceAllString(colored, ""), "+hello there world")
}
