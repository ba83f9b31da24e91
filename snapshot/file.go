package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/codalotl/inlinesnap/internal/gocode"
	"github.com/codalotl/inlinesnap/internal/snaperr"
)

// SnapshotDir is the directory, next to the test file, that holds file snapshots.
const SnapshotDir = "__snapshots__"

// AssertOption configures Assert.
type AssertOption func(*assertConfig)

type assertConfig struct {
	name    string
	dir     string
	timeout time.Duration
	skip    int
}

// Named names the snapshot file instead of numbering it.
func Named(name string) AssertOption {
	return func(c *assertConfig) { c.name = name }
}

// InDir stores the snapshot in dir instead of the __snapshots__ directory next to the test file.
func InDir(dir string) AssertOption {
	return func(c *assertConfig) { c.dir = dir }
}

// WithTimeout overrides the configured timeout for producing the value.
func WithTimeout(d time.Duration) AssertOption {
	return func(c *assertConfig) { c.timeout = d }
}

// WithCallerSkip adds frames between the test function and Assert, for helpers that wrap Assert.
func WithCallerSkip(n int) AssertOption {
	return func(c *assertConfig) { c.skip = n }
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// Assert compares the snapshot of value against a reference file at `<test dir>/__snapshots__/<TestName>.<n>.<ext>`, where n counts the unnamed snapshots
// of the test. Missing or changed references are written according to the record mode.
func (r *Run) Assert(t testing.TB, value any, strategy Strategy, opts ...AssertOption) {
	t.Helper()

	c := assertConfig{timeout: r.cfg.Timeout}
	for _, opt := range opts {
		opt(&c)
	}

	_, file, _, ok := runtime.Caller(1 + c.skip)
	if !ok {
		t.Error("Could not determine the calling source location.")
		return
	}
	name := c.name
	if name == "" {
		name = strconv.Itoa(r.next(t))
	}
	dir := c.dir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(file), SnapshotDir)
	}
	path := filepath.Join(dir, sanitize(t.Name())+"."+sanitize(name)+"."+strategy.Ext())

	actual, err := capture(strategy, value, c.timeout)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			r.fail(t, err, timeoutMessage(c.timeout))
			return
		}
		r.fail(t, err, fmt.Sprintf("Could not snapshot value: %v", err))
		return
	}

	var reference *string
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		ref := string(data)
		reference = &ref
	case !errors.Is(err, fs.ErrNotExist):
		r.fail(t, err, fmt.Sprintf("Could not read reference %s: %v", path, err))
		return
	}
	matched := reference != nil && *reference == actual

	if matched && r.cfg.Record != RecordAll {
		return
	}
	if !shouldRecord(r.cfg.Record, reference != nil, matched) {
		if reference == nil {
			t.Error(NoReferenceMessage)
			return
		}
		t.Error(mismatchMessage(r.patch(*reference, actual)))
		return
	}

	if err := gocode.WriteFileAtomic(path, []byte(actual)); err != nil {
		err = snaperr.Wrap(snaperr.KindIO, "write snapshot", err, "path", path)
		r.fail(t, err, fmt.Sprintf("Could not record snapshot: %v", err))
		return
	}
	r.debug("recorded file snapshot", "path", path)

	patch := ""
	if reference != nil && !matched {
		patch = r.patch(*reference, actual)
	}
	t.Error(recordedMessage(r.cfg.Record, "file://"+filepath.ToSlash(path), t.Name(), reference != nil, patch))
}

func sanitize(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}
