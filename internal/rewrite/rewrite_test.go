package rewrite

import (
	"strings"
	"testing"

	"github.com/codalotl/inlinesnap/internal/gocode"
	"github.com/codalotl/inlinesnap/internal/locate"
	"github.com/codalotl/inlinesnap/internal/snaperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "package sample\n\nimport (\n\t\"testing\"\n\n\t\"github.com/codalotl/inlinesnap/snapshot\"\n)\n\n"

const bt = "`"

func testSource(body string) string {
	return header + "func TestSample(t *testing.T) {\n" + body + "}\n"
}

func parse(t *testing.T, src string) *gocode.File {
	t.Helper()
	f := &gocode.File{AbsolutePath: "/tmp/sample_test.go", Contents: []byte(src)}
	_, err := f.Parse(nil)
	require.NoError(t, err)
	return f
}

func lineOf(t *testing.T, src, substr string) uint {
	t.Helper()
	i := strings.Index(src, substr)
	require.GreaterOrEqual(t, i, 0, substr)
	return uint(strings.Count(src[:i], "\n") + 1)
}

func str(s string) *string {
	return &s
}

// relocate parses contents and returns the value at the call on line.
func relocate(t *testing.T, contents []byte, line uint, function string, d locate.Descriptor) string {
	t.Helper()
	f := parse(t, string(contents))
	loc, err := locate.Locate(f, int(line), 0, function, d)
	require.NoError(t, err)
	v, ok := loc.Value()
	require.True(t, ok)
	return v
}

func TestRewrite_ReplacePrimary(t *testing.T) {
	src := testSource("\tcheck(1, func() string {\n\t\treturn \"old\"\n\t})\n")
	f := parse(t, src)
	line := lineOf(t, src, "check(1")

	res := Rewrite(f, []Record{{Line: line, Function: "check", Reference: str("old"), Diffable: str("new")}}, Options{})

	want := testSource("\tcheck(1, func() string {\n\t\treturn " + bt + "\n\t\tnew\n\t\t" + bt + "\n\t})\n")
	assert.Equal(t, want, string(res.Contents))
	assert.Equal(t, 1, res.Applied)
	assert.Empty(t, res.Skipped)

	require.Len(t, res.Reports, 1)
	rep := res.Reports[0]
	assert.True(t, rep.Recorded)
	assert.Equal(t, int(line), rep.Line)
	assert.Equal(t, "/tmp/sample_test.go", rep.File)
	assert.True(t, strings.HasPrefix(rep.Message, MessageRecorded))
	assert.Contains(t, rep.Message, "−old")
	assert.Contains(t, rep.Message, "+new")

	assert.Equal(t, "new", relocate(t, res.Contents, line, "check", locate.Descriptor{}))
	assert.Equal(t, f.Contents, []byte(src), "input file is not modified")
}

func TestRewrite_Idempotent(t *testing.T) {
	src := testSource("\tcheck(1, func() string {\n\t\treturn \"same\"\n\t})\n")
	f := parse(t, src)
	line := lineOf(t, src, "check(1")

	res := Rewrite(f, []Record{{Line: line, Function: "check", Reference: str("same"), Diffable: str("same"), WasRecording: true}}, Options{})

	assert.Equal(t, src, string(res.Contents))
	assert.False(t, res.Changed())
	require.Len(t, res.Reports, 1)
	assert.Equal(t, MessageNotRecorded, res.Reports[0].Message)
	assert.Equal(t, int(line), res.Reports[0].Line)
	assert.False(t, res.Reports[0].Recorded)
}

func TestRewrite_ReplaceLabeled(t *testing.T) {
	body := "\tcheck(t, func() string {\n\t\treturn \"A\"\n\t}, snapshot.Labeled(\"expect\", func() string {\n\t\treturn \"B\"\n\t}))\n"
	src := testSource(body)
	f := parse(t, src)
	line := lineOf(t, src, "check(t")
	d := locate.Descriptor{Label: "expect", Offset: 1}

	res := Rewrite(f, []Record{{Line: line, Function: "check", Descriptor: d, Reference: str("B"), Diffable: str("B2")}}, Options{})

	wantBody := "\tcheck(t, func() string {\n\t\treturn \"A\"\n\t}, snapshot.Labeled(\"expect\", func() string {\n\t\treturn " + bt + "\n\t\tB2\n\t\t" + bt + "\n\t}))\n"
	assert.Equal(t, testSource(wantBody), string(res.Contents))
	assert.Equal(t, "B2", relocate(t, res.Contents, line, "check", d))
	assert.Equal(t, "A", relocate(t, res.Contents, line, "check", locate.Descriptor{}))
}

func TestRewrite_InsertPrimary(t *testing.T) {
	src := testSource("\tr.AssertInline(t, 3, snapshot.Lines)\n")
	f := parse(t, src)
	line := lineOf(t, src, "r.AssertInline")

	res := Rewrite(f, []Record{{Line: line, Function: "AssertInline", Diffable: str("hello\nworld")}}, Options{})

	want := testSource("\tr.AssertInline(t, 3, snapshot.Lines, func() string {\n\t\treturn " + bt + "\n\t\thello\n\t\tworld\n\t\t" + bt + "\n\t})\n")
	assert.Equal(t, want, string(res.Contents))
	require.Len(t, res.Reports, 1)
	assert.Equal(t, MessageRecorded+"\n\n"+rerunHint, res.Reports[0].Message)
	assert.Equal(t, "hello\nworld", relocate(t, res.Contents, line, "AssertInline", locate.Descriptor{}))
}

func TestRewrite_InsertLabeledUsesImportName(t *testing.T) {
	src := "package sample\n\nimport snap \"github.com/codalotl/inlinesnap/snapshot\"\n\nfunc TestSample(t *testing.T) {\n\tcheck(t, 2)\n}\n"
	f := parse(t, src)
	line := lineOf(t, src, "check(t")
	d := locate.Descriptor{Label: "expect", Offset: 1}

	res := Rewrite(f, []Record{{Line: line, Function: "check", Descriptor: d, Diffable: str("v")}}, Options{})

	want := "package sample\n\nimport snap \"github.com/codalotl/inlinesnap/snapshot\"\n\nfunc TestSample(t *testing.T) {\n\tcheck(t, 2, snap.Labeled(\"expect\", func() string {\n\t\treturn " + bt + "\n\t\tv\n\t\t" + bt + "\n\t}))\n}\n"
	assert.Equal(t, want, string(res.Contents))
	assert.Equal(t, "v", relocate(t, res.Contents, line, "check", d))
}

func TestRewrite_MultipleRecordsAdjustLines(t *testing.T) {
	src := testSource("\tr.AssertInline(t, 1, snapshot.Lines)\n\tr.AssertInline(t, 2, snapshot.Lines)\n")
	f := parse(t, src)
	first := lineOf(t, src, "r.AssertInline(t, 1")
	second := lineOf(t, src, "r.AssertInline(t, 2")

	// Out of order on purpose; records are applied in ascending line order.
	res := Rewrite(f, []Record{
		{Line: second, Function: "AssertInline", Diffable: str("b")},
		{Line: first, Function: "AssertInline", Diffable: str("a")},
	}, Options{})

	assert.Equal(t, 2, res.Applied)
	require.Len(t, res.Reports, 2)
	assert.Equal(t, int(first), res.Reports[0].Line)
	assert.Equal(t, int(second)+4, res.Reports[1].Line)

	assert.Equal(t, "a", relocate(t, res.Contents, first, "AssertInline", locate.Descriptor{}))
	assert.Equal(t, "b", relocate(t, res.Contents, second+4, "AssertInline", locate.Descriptor{}))
}

func TestRewrite_RemovePrimaryPromotesLabeled(t *testing.T) {
	body := "\tcheck(t, func() string {\n\t\treturn \"A\"\n\t}, snapshot.Labeled(\"expect\", func() string {\n\t\treturn \"B\"\n\t}))\n"
	src := testSource(body)
	f := parse(t, src)
	line := lineOf(t, src, "check(t")

	res := Rewrite(f, []Record{{Line: line, Function: "check", Reference: str("A")}}, Options{})

	assert.Equal(t, testSource("\tcheck(t, func() string {\n\t\treturn \"B\"\n\t})\n"), string(res.Contents))
	require.Len(t, res.Reports, 1)
	assert.Equal(t, MessageRemoved, res.Reports[0].Message)
}

func TestRewrite_RemoveArguments(t *testing.T) {
	tests := []struct {
		name string
		body string
		d    locate.Descriptor
		want string
	}{
		{
			name: "positional closure",
			body: "\tcheck(t, func() string { return \"P\" }, func() string { return \"Q\" })\n",
			want: "\tcheck(t, func() string { return \"Q\" })\n",
		},
		{
			name: "only argument",
			body: "\tcheck(func() string { return \"P\" })\n",
			want: "\tcheck()\n",
		},
		{
			name: "labeled",
			body: "\tcheck(t, snapshot.Labeled(\"expect\", func() string { return \"B\" }))\n",
			d:    locate.Descriptor{Label: "expect", Offset: 1},
			want: "\tcheck(t)\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := testSource(tt.body)
			f := parse(t, src)
			line := lineOf(t, src, "check(")

			res := Rewrite(f, []Record{{Line: line, Function: "check", Descriptor: tt.d, Reference: str("x")}}, Options{})

			assert.Equal(t, testSource(tt.want), string(res.Contents))
			assert.Empty(t, res.Skipped)
		})
	}
}

func TestRewrite_Conflict(t *testing.T) {
	src := testSource("\tcheck(1, func() string {\n\t\treturn \"old\"\n\t})\n")
	f := parse(t, src)
	line := lineOf(t, src, "check(1")

	res := Rewrite(f, []Record{
		{Line: line, Function: "check", Reference: str("old"), Diffable: str("one")},
		{Line: line, Function: "check", Reference: str("old"), Diffable: str("two")},
	}, Options{})

	assert.Equal(t, 1, res.Applied)
	require.Len(t, res.Skipped, 1)
	assert.ErrorIs(t, res.Skipped[0], snaperr.ErrEditConflict)
	var editErr *EditError
	require.ErrorAs(t, res.Skipped[0], &editErr)
	assert.Equal(t, int(line), editErr.Line)
	assert.Equal(t, "one", relocate(t, res.Contents, line, "check", locate.Descriptor{}))
}

func TestRewrite_LocatorMiss(t *testing.T) {
	src := testSource("\tcheck(1, func() string {\n\t\treturn \"old\"\n\t})\n")
	f := parse(t, src)

	res := Rewrite(f, []Record{{Line: 2, Function: "check", Reference: str("old"), Diffable: str("new")}}, Options{})

	assert.Equal(t, src, string(res.Contents))
	require.Len(t, res.Skipped, 1)
	assert.ErrorIs(t, res.Skipped[0], snaperr.ErrLocatorMiss)
	require.Len(t, res.Reports, 1)
	assert.Equal(t, 2, res.Reports[0].Line)
	assert.False(t, res.Reports[0].Recorded)
	assert.True(t, strings.HasPrefix(res.Reports[0].Message, MessageNotRecorded))
	assert.Contains(t, res.Reports[0].Message, "no call expression at position")
}

func TestRewrite_ReportsSkippedNextToApplied(t *testing.T) {
	src := testSource("\tcheck(1, func() string {\n\t\treturn \"old\"\n\t})\n")
	f := parse(t, src)
	line := lineOf(t, src, "check(1")

	res := Rewrite(f, []Record{
		{Line: line, Function: "check", Reference: str("old"), Diffable: str("new")},
		{Line: 999, Function: "check", Reference: str("a"), Diffable: str("b")},
	}, Options{})

	assert.Equal(t, 1, res.Applied)
	require.Len(t, res.Skipped, 1)
	require.Len(t, res.Reports, 2)

	assert.True(t, res.Reports[0].Recorded)
	assert.Equal(t, int(line), res.Reports[0].Line)

	missed := res.Reports[1]
	assert.False(t, missed.Recorded)
	assert.Equal(t, 999, missed.Line)
	assert.True(t, strings.HasPrefix(missed.Message, MessageNotRecorded))
	assert.Contains(t, missed.Message, "no call expression at position")
}

func TestRewrite_ConflictIsReported(t *testing.T) {
	src := testSource("\tcheck(1, func() string {\n\t\treturn \"old\"\n\t})\n")
	f := parse(t, src)
	line := lineOf(t, src, "check(1")

	res := Rewrite(f, []Record{
		{Line: line, Function: "check", Reference: str("old"), Diffable: str("one")},
		{Line: line, Function: "check", Reference: str("old"), Diffable: str("two")},
	}, Options{})

	require.Len(t, res.Reports, 2)
	assert.True(t, res.Reports[0].Recorded)
	assert.False(t, res.Reports[1].Recorded)
	assert.Equal(t, int(line), res.Reports[1].Line)
	assert.Contains(t, res.Reports[1].Message, "edit overlaps an earlier edit")
}

func TestRewrite_RemoveMissingSlotIsNoop(t *testing.T) {
	src := testSource("\tcheck(1)\n")
	f := parse(t, src)
	line := lineOf(t, src, "check(1")

	res := Rewrite(f, []Record{{Line: line, Function: "check", Reference: str("gone")}}, Options{})

	assert.False(t, res.Changed())
	assert.Equal(t, 0, res.Applied)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, src, string(res.Contents))
	require.Len(t, res.Reports, 1)
	assert.Equal(t, MessageNotRecorded, res.Reports[0].Message)
	assert.False(t, res.Reports[0].Recorded)
}

func TestRewrite_IndentFallback(t *testing.T) {
	// No indented lines: the call sits at column 1 inside a one-line function.
	src := "package sample\n\nvar _ = check(1)\n"
	f := parse(t, src)

	res := Rewrite(f, []Record{{Line: 3, Function: "check", Diffable: str("x")}}, Options{IndentUnit: "  "})

	want := "package sample\n\nvar _ = check(1, func() string {\n  return " + bt + "\n  x\n  " + bt + "\n})\n"
	assert.Equal(t, want, string(res.Contents))
}

func TestRecord_IsNoop(t *testing.T) {
	assert.True(t, Record{}.IsNoop())
	assert.True(t, Record{Reference: str("a"), Diffable: str("a")}.IsNoop())
	assert.False(t, Record{Reference: str("a"), Diffable: str("b")}.IsNoop())
	assert.False(t, Record{Diffable: str("b")}.IsNoop())
	assert.False(t, Record{Reference: str("a")}.IsNoop())
}
