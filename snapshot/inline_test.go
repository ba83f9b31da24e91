package snapshot

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/codalotl/inlinesnap/internal/recording"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests never flush a Run without a journal: that would rewrite this file.

func TestAssertInline_Matches(t *testing.T) {
	for _, mode := range []RecordMode{RecordMissing, RecordNever, RecordFailed} {
		r := testRun(t, mode)
		ft := newFakeTB("TestMatches")
		r.AssertInline(ft, "hello\nworld", Lines, func() string {
			return `
			hello
			world
			`
		})
		assert.False(t, ft.failed(), "%s: %s", mode, ft.message())
		assert.Empty(t, r.store.Pending(), mode)
	}
}

func TestAssertInline_MissingIsQueued(t *testing.T) {
	r := testRun(t, RecordMissing)
	ft := newFakeTB("TestMissing")

	_, thisFile, line, _ := runtime.Caller(0)
	r.AssertInline(ft, "new value", Lines)

	require.True(t, ft.failed())
	assert.Contains(t, ft.message(), "No reference was found on disk. Automatically recorded snapshot: …")
	assert.Contains(t, ft.message(), `Re-run "TestMissing" to assert against the newly-recorded snapshot.`)

	pending := r.store.Pending()
	require.Len(t, pending, 1)
	rec := pending[0]
	assert.Equal(t, filepath.Clean(thisFile), rec.File)
	assert.EqualValues(t, line+1, rec.Line)
	assert.Equal(t, "AssertInline", rec.Function)
	assert.Nil(t, rec.Reference)
	require.NotNil(t, rec.Diffable)
	assert.Equal(t, "new value", *rec.Diffable)
}

func TestAssertInline_Mismatch(t *testing.T) {
	t.Run("never", func(t *testing.T) {
		r := testRun(t, RecordNever)
		ft := newFakeTB("TestMismatch")
		r.AssertInline(ft, "b", Lines, func() string { return "a" })
		assert.Contains(t, ft.message(), "Snapshot did not match. Difference: … (−expected +actual)")
		assert.Contains(t, ft.message(), "−a")
		assert.Contains(t, ft.message(), "+b")
		assert.Empty(t, r.store.Pending())
	})
	t.Run("missing", func(t *testing.T) {
		r := testRun(t, RecordMissing)
		ft := newFakeTB("TestMismatch")
		r.AssertInline(ft, "b", Lines, func() string { return "a" })
		assert.Contains(t, ft.message(), "Snapshot did not match. Difference")
		assert.Empty(t, r.store.Pending())
	})
	t.Run("failed", func(t *testing.T) {
		r := testRun(t, RecordFailed)
		ft := newFakeTB("TestMismatch")
		r.AssertInline(ft, "b", Lines, func() string { return "a" })
		assert.Contains(t, ft.message(), "Snapshot did not match. Automatically recorded a new snapshot: …")
		pending := r.store.Pending()
		require.Len(t, pending, 1)
		require.NotNil(t, pending[0].Reference)
		assert.Equal(t, "a", *pending[0].Reference)
	})
}

func TestAssertInline_NeverMissing(t *testing.T) {
	r := testRun(t, RecordNever)
	ft := newFakeTB("TestNever")
	r.AssertInline(ft, "x", Lines)
	assert.Equal(t, []string{NoReferenceMessage}, ft.errors)
	assert.Empty(t, r.store.Pending())
}

func TestAssertInline_RecordAllMatched(t *testing.T) {
	r := testRun(t, RecordAll)
	ft := newFakeTB("TestAll")
	r.AssertInline(ft, "x", Lines, func() string { return "x" })
	assert.Contains(t, ft.message(), "Record mode is on. The inline snapshot already matches.")
	assert.Empty(t, r.store.Pending())
}

func TestAssertInlineWith_RemoveWhenEmpty(t *testing.T) {
	r := testRun(t, RecordFailed)
	ft := newFakeTB("TestRemove")
	r.AssertInlineWith(ft, "", Lines, func() string { return "old" }, InlineOptions{
		Descriptor:      Descriptor{Label: "expect", Offset: 1},
		RemoveWhenEmpty: true,
	})
	pending := r.store.Pending()
	require.Len(t, pending, 1)
	assert.Nil(t, pending[0].Diffable)
	assert.Equal(t, "AssertInlineWith", pending[0].Function)
	assert.Equal(t, Descriptor{Label: "expect", Offset: 1}, pending[0].Descriptor)
}

func TestAssertInlineWith_CallerSkip(t *testing.T) {
	r := testRun(t, RecordMissing)
	ft := newFakeTB("TestHelper")

	check := func(v string) {
		r.AssertInlineWith(ft, v, Lines, nil, InlineOptions{Function: "check", CallerSkip: 1})
	}
	_, _, line, _ := runtime.Caller(0)
	check("value")

	pending := r.store.Pending()
	require.Len(t, pending, 1)
	assert.EqualValues(t, line+1, pending[0].Line)
	assert.Equal(t, "check", pending[0].Function)
}

func TestRun_FlushToJournal(t *testing.T) {
	journal := t.TempDir()
	cfg := DefaultConfig()
	cfg.Color = ColorOff
	cfg.Journal = journal
	r := NewRun(cfg)

	ft := newFakeTB("TestJournal")
	r.AssertInline(ft, "one", Lines)
	r.AssertInline(ft, "two", Lines)
	require.True(t, ft.failed())

	reports, err := r.Flush(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Contains(t, reports[0].Message, "inlinesnap apply "+journal)
	assert.Empty(t, r.store.Pending())

	records, files, err := recording.LoadJournal(journal)
	require.NoError(t, err)
	assert.Len(t, files, 1)
	require.Len(t, records, 2)
	assert.Equal(t, "one", *records[0].Diffable)
	assert.Equal(t, "two", *records[1].Diffable)

	// Nothing pending: nothing journaled.
	reports, err = r.Flush(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestRun_Main(t *testing.T) {
	journal := t.TempDir()
	cfg := DefaultConfig()
	cfg.Color = ColorOff
	cfg.Journal = journal

	var out strings.Builder
	r := NewRun(cfg, WithOutput(&out))
	code := r.Main(fakeM(func() int {
		r.AssertInline(newFakeTB("TestInMain"), "v", Lines)
		return 1
	}))
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "Inline snapshots were journaled.")

	r = NewRun(cfg, WithOutput(&out))
	assert.Equal(t, 0, r.Main(fakeM(func() int { return 0 })))
}

type fakeM func() int

func (m fakeM) Run() int { return m() }

func TestLabeled(t *testing.T) {
	body := func() string { return "x" }
	assert.Equal(t, "x", Labeled("expect", body)())
}
