package snapshot

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

// fakeTB records failures instead of failing the real test.
type fakeTB struct {
	testing.TB
	name string

	mu       sync.Mutex
	errors   []string
	cleanups []func()
}

func newFakeTB(name string) *fakeTB {
	return &fakeTB{name: name}
}

func (f *fakeTB) Helper()      {}
func (f *fakeTB) Name() string { return f.name }

func (f *fakeTB) Error(args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

func (f *fakeTB) Errorf(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, fmt.Sprintf(format, args...))
}

func (f *fakeTB) Cleanup(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanups = append(f.cleanups, fn)
}

// finish runs the registered cleanups, last first.
func (f *fakeTB) finish() {
	for i := len(f.cleanups) - 1; i >= 0; i-- {
		f.cleanups[i]()
	}
	f.cleanups = nil
}

func (f *fakeTB) failed() bool {
	return len(f.errors) > 0
}

func (f *fakeTB) message() string {
	return strings.Join(f.errors, "\n")
}

// testRun returns a Run with plain output and no journal.
func testRun(t *testing.T, mode RecordMode) *Run {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Record = mode
	cfg.Color = ColorOff
	return NewRun(cfg)
}
