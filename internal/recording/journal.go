package recording

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/codalotl/inlinesnap/internal/gocode"
	"github.com/codalotl/inlinesnap/internal/rewrite"
	"github.com/codalotl/inlinesnap/internal/snaperr"
	"github.com/vmihailenco/msgpack/v5"
)

// journalSchemaVersion is written to every journal. Increment it when the journal format changes.
const journalSchemaVersion uint16 = 1

// JournalExt is the extension of journal files.
const JournalExt = ".msgpack"

// journal is the on-disk form of deferred records.
type journal struct {
	Schema  uint16           `msgpack:"schema"`
	Created time.Time        `msgpack:"created"`
	Records []rewrite.Record `msgpack:"records"`
}

// Export moves every pending record into a new journal file in dir and returns its path. Sources are not touched. It returns "" if nothing is pending.
func (s *Store) Export(dir string) (string, error) {
	jobs := s.take(nil)
	var records []rewrite.Record
	for _, j := range jobs {
		records = append(records, j.records...)
	}
	if len(records) == 0 {
		return "", nil
	}

	path, err := SaveJournal(dir, records)
	if err != nil {
		for _, j := range jobs {
			s.requeue(j)
		}
		return "", err
	}
	return path, nil
}

// Import queues every record of the journal files in dir. It returns the journal files read.
func (s *Store) Import(dir string) ([]string, error) {
	records, files, err := LoadJournal(dir)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if err := s.Write(r); err != nil {
			return files, err
		}
	}
	return files, nil
}

// SaveJournal writes records to a new file `<pid>-<unix nanos>.msgpack` in dir.
func SaveJournal(dir string, records []rewrite.Record) (string, error) {
	data, err := msgpack.Marshal(journal{Schema: journalSchemaVersion, Created: time.Now().UTC(), Records: records})
	if err != nil {
		return "", fmt.Errorf("encode journal: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%d-%d%s", os.Getpid(), time.Now().UnixNano(), JournalExt))
	if err := gocode.WriteFileAtomic(path, data); err != nil {
		return "", snaperr.Wrap(snaperr.KindIO, "write journal", err, "path", path)
	}
	return path, nil
}

// LoadJournal reads every journal file in dir, in name order, and returns their records and the files read.
func LoadJournal(dir string) ([]rewrite.Record, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, snaperr.Wrap(snaperr.KindIO, "read journal dir", err, "dir", dir)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), JournalExt) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)

	var records []rewrite.Record
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, snaperr.Wrap(snaperr.KindIO, "read journal", err, "path", path)
		}
		var j journal
		if err := msgpack.Unmarshal(data, &j); err != nil {
			return nil, nil, snaperr.Wrap(snaperr.KindIO, "decode journal", err, "path", path)
		}
		if j.Schema != journalSchemaVersion {
			return nil, nil, snaperr.New(snaperr.KindIO, "unsupported journal schema", "path", path, "schema", j.Schema)
		}
		records = append(records, j.Records...)
	}
	return records, files, nil
}
