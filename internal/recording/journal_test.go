package recording

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codalotl/inlinesnap/internal/locate"
	"github.com/codalotl/inlinesnap/internal/rewrite"
	"github.com/codalotl/inlinesnap/internal/snaperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestJournal_ExportImport(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a_test.go", sampleSource)
	journalDir := filepath.Join(dir, "journal")

	s := New(Options{})
	path, err := s.Export(journalDir)
	require.NoError(t, err)
	assert.Equal(t, "", path)

	rec := rewrite.Record{
		File:       a,
		Line:       callLine,
		Function:   "AssertInline",
		Descriptor: locate.Descriptor{DeprecatedLabels: []string{"old"}},
		Reference:  str("one"),
		Diffable:   str("from journal"),
	}
	require.NoError(t, s.Write(rec))

	path, err = s.Export(journalDir)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Empty(t, s.Pending())
	assert.Equal(t, "one", valueAt(t, a, callLine), "export does not touch sources")

	other := New(Options{})
	files, err := other.Import(journalDir)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
	require.Equal(t, []rewrite.Record{rec}, other.Pending())

	results, err := other.Flush(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "from journal", valueAt(t, a, callLine))
}

func TestLoadJournal_Errors(t *testing.T) {
	_, _, err := LoadJournal(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, snaperr.ErrIO)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad"+JournalExt), []byte("not msgpack"), 0o644))
	_, _, err = LoadJournal(dir)
	assert.ErrorIs(t, err, snaperr.ErrIO)

	// Files without the journal extension are ignored.
	empty := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(empty, "notes.txt"), []byte("x"), 0o644))
	records, files, err := LoadJournal(empty)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, files)
}

func TestLoadJournal_RejectsOtherSchema(t *testing.T) {
	dir := t.TempDir()
	data, err := msgpack.Marshal(journal{Schema: journalSchemaVersion + 1, Created: time.Now()})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "future"+JournalExt), data, 0o644))

	_, _, err = LoadJournal(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, snaperr.ErrIO)
	assert.Contains(t, err.Error(), "unsupported journal schema")
}
