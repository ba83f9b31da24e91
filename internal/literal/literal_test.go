package literal

import (
	"go/parser"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_RoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"hello",
		"hello\nworld",
		"trailing newline\n",
		"\nleading newline",
		"\n\n",
		"   ",
		"indented\n    body\n\tand tab",
		`contains """### and \ backslashes \n`,
		"back`tick",
		"``",
		"`starts and ends`",
		"crlf\r\nline\r\n",
		"bom\uFEFFinside",
		"nul\x00byte",
		"bad utf8 \xff\xfe",
		"unicode: héllo 世界 \u2212",
		"ends with spaces   \n  ",
	}

	for _, indent := range []string{"\t\t", "        ", ""} {
		for _, in := range inputs {
			src := Encode(in, indent)
			expr, err := parser.ParseExpr(src)
			require.NoError(t, err, "source: %s", src)

			got, ok := Value(expr)
			require.True(t, ok, "source: %s", src)
			assert.Equal(t, in, got, "indent=%q source: %s", indent, src)
		}
	}
}

func TestQuote_Segments(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		split bool
	}{
		{in: "", want: "``"},
		{in: "plain", want: "`plain`"},
		{in: `a\b"c`, want: "`a\\b\"c`"},
		{in: "a`b", want: "`a` + \"`\" + `b`", split: true},
		{in: "``x", want: "\"``\" + `x`", split: true},
		{in: "x\r\n", want: "`x` + \"\\r\" + `\n`", split: true},
		{in: "\xff", want: `"\xff"`, split: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Quote(tt.in))
			assert.Equal(t, tt.split, NeedsSplit(tt.in))
		})
	}
}

func TestEncode_Shape(t *testing.T) {
	got := Encode("first\n\nsecond", "\t\t")
	assert.Equal(t, "`\n\t\tfirst\n\n\t\tsecond\n\t\t`", got)
}

func TestValue_HandWritten(t *testing.T) {
	tests := []struct {
		src  string
		want string
		ok   bool
	}{
		{src: `"hello"`, want: "hello", ok: true},
		{src: `("a" + "b") + ` + "`c`", want: "abc", ok: true},
		{src: "`\n  x\n  y\n  `", want: "x\ny", ok: true},
		{src: "`\n  x\n  y`", want: "\n  x\n  y", ok: true}, // last line is not whitespace: verbatim
		{src: `"no" + 1`, ok: false},
		{src: `fmt.Sprint("x")`, ok: false},
		{src: `'x'`, ok: false},
		{src: `"a" - "b"`, ok: false},
	}
	for _, tt := range tests {
		expr, err := parser.ParseExpr(tt.src)
		require.NoError(t, err)
		got, ok := Value(expr)
		assert.Equal(t, tt.ok, ok, tt.src)
		assert.Equal(t, tt.want, got, tt.src)
	}
}

func TestDetectIndentUnit(t *testing.T) {
	unit, ok := DetectIndentUnit([]byte("package x\n\n   \nfunc f() {\n\treturn\n}\n"))
	assert.True(t, ok)
	assert.Equal(t, "\t", unit)

	unit, ok = DetectIndentUnit([]byte("a\r\n  b\r\n"))
	assert.True(t, ok)
	assert.Equal(t, "  ", unit)

	_, ok = DetectIndentUnit([]byte("package x\n\nvar y = 1\n"))
	assert.False(t, ok)
}
